// Package mailchimp implements the email connector for the Mailchimp
// Marketing API. Requests authenticate with HTTP Basic where the password is
// the API key, against the datacenter shard named by the credential (or
// encoded in the key's suffix).
package mailchimp

import (
	"context"
	"crypto/md5" //nolint:gosec // G501: Mailchimp addresses members by MD5 of the email
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/genialabs/conduit/pkg/clients"
	"github.com/genialabs/conduit/pkg/config"
	"github.com/genialabs/conduit/pkg/connector/base"
	"github.com/genialabs/conduit/pkg/connector/core"
	"github.com/genialabs/conduit/pkg/connector/registry"
	"github.com/genialabs/conduit/pkg/errors"
	jsonx "github.com/genialabs/conduit/pkg/json"
)

func init() {
	_ = registry.RegisterEmail("mailchimp", func(credential *core.Credential, cfg *config.Config) (core.EmailConnector, error) {
		return New(credential, cfg)
	})
}

// Connector creates campaigns and manages list subscribers.
type Connector struct {
	*base.Adapter

	credential *core.Credential

	// BaseURL is the datacenter API root, overridable in tests
	BaseURL string
}

// New creates a Mailchimp connector bound to one credential
func New(credential *core.Credential, cfg *config.Config) (*Connector, error) {
	if credential == nil || credential.Token() == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "mailchimp requires an api key")
	}

	dc := datacenter(credential)
	if dc == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "mailchimp datacenter unknown; key carries no dc suffix")
	}

	return &Connector{
		Adapter:    base.NewAdapter("mailchimp", core.FamilyEmail, cfg),
		credential: credential,
		BaseURL:    fmt.Sprintf("https://%s.api.mailchimp.com/3.0", dc),
	}, nil
}

// datacenter resolves the API shard: the stored server prefix wins, else the
// suffix after the last dash of the key ("...-us6")
func datacenter(credential *core.Credential) string {
	if credential.ServerPrefix != "" {
		return credential.ServerPrefix
	}
	key := credential.Token()
	if idx := strings.LastIndex(key, "-"); idx >= 0 && idx < len(key)-1 {
		return key[idx+1:]
	}
	return ""
}

func (c *Connector) headers() map[string]string {
	h := clients.BasicAuth("anystring", c.credential.Token())
	h["Content-Type"] = "application/json"
	return h
}

// subscriberHash is the member key: lowercase MD5 of the lowercased email
func subscriberHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(email))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// VerifyCredentials checks the key against the /ping health endpoint
func (c *Connector) VerifyCredentials(ctx context.Context) bool {
	return c.VerifyCall(ctx, func(ctx context.Context) error {
		resp, err := c.HTTP().Get(ctx, c.BaseURL+"/ping", c.headers())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "mailchimp verify call failed")
		}
		return c.DecodeResponse(resp, nil)
	})
}

type campaignCreateRequest struct {
	Type       string `json:"type"`
	Recipients struct {
		ListID string `json:"list_id"`
	} `json:"recipients"`
	Settings struct {
		SubjectLine string `json:"subject_line"`
		FromName    string `json:"from_name"`
		ReplyTo     string `json:"reply_to"`
	} `json:"settings"`
}

type campaignCreateResult struct {
	ID string `json:"id"`
}

type campaignContentRequest struct {
	HTML string `json:"html"`
}

type scheduleRequest struct {
	ScheduleTime string `json:"schedule_time"`
}

// CreateCampaign creates the campaign, sets its content and then sends or
// schedules it depending on the campaign's schedule time.
func (c *Connector) CreateCampaign(ctx context.Context, campaign core.Campaign) core.CampaignResponse {
	var response core.CampaignResponse

	c.Instrument(ctx, "create_campaign", func(ctx context.Context) (bool, string) {
		response = c.createCampaign(ctx, campaign)
		return response.Success, response.Error
	})

	return response
}

func (c *Connector) createCampaign(ctx context.Context, campaign core.Campaign) core.CampaignResponse {
	request := campaignCreateRequest{Type: "regular"}
	request.Recipients.ListID = campaign.ListID
	request.Settings.SubjectLine = campaign.Subject
	request.Settings.FromName = campaign.FromName
	request.Settings.ReplyTo = campaign.FromEmail

	body, err := jsonx.MarshalReader(request)
	if err != nil {
		return core.CampaignFail(fmt.Sprintf("mailchimp request encoding failed: %v", err))
	}

	resp, err := c.HTTP().Post(ctx, c.BaseURL+"/campaigns", body, c.headers())
	if err != nil {
		return core.CampaignFail(fmt.Sprintf("mailchimp campaign creation failed: %v", err))
	}

	var created campaignCreateResult
	if err := c.DecodeResponse(resp, &created); err != nil {
		return core.CampaignFail(err.Error())
	}
	if created.ID == "" {
		return core.CampaignFail("mailchimp returned no campaign id")
	}

	if err := c.setContent(ctx, created.ID, campaign.HTMLBody); err != nil {
		return core.CampaignFail(err.Error())
	}

	if campaign.ScheduledAt != nil {
		if err := c.schedule(ctx, created.ID, *campaign.ScheduledAt); err != nil {
			return core.CampaignFail(err.Error())
		}
		c.Logger().Info("campaign scheduled",
			zap.String("campaign_id", created.ID),
			zap.Time("schedule_time", *campaign.ScheduledAt))
	} else {
		if err := c.send(ctx, created.ID); err != nil {
			return core.CampaignFail(err.Error())
		}
		c.Logger().Info("campaign sent", zap.String("campaign_id", created.ID))
	}

	return core.CampaignOK(created.ID)
}

func (c *Connector) setContent(ctx context.Context, campaignID, html string) error {
	body, err := jsonx.MarshalReader(campaignContentRequest{HTML: html})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "mailchimp content encoding failed")
	}

	endpoint := fmt.Sprintf("%s/campaigns/%s/content", c.BaseURL, campaignID)
	resp, err := c.HTTP().Put(ctx, endpoint, body, c.headers())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "mailchimp content upload failed")
	}
	return c.DecodeResponse(resp, nil)
}

func (c *Connector) send(ctx context.Context, campaignID string) error {
	endpoint := fmt.Sprintf("%s/campaigns/%s/actions/send", c.BaseURL, campaignID)
	resp, err := c.HTTP().Post(ctx, endpoint, nil, c.headers())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "mailchimp send failed")
	}
	return c.DecodeResponse(resp, nil)
}

func (c *Connector) schedule(ctx context.Context, campaignID string, at time.Time) error {
	body, err := jsonx.MarshalReader(scheduleRequest{ScheduleTime: at.UTC().Format(time.RFC3339)})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "mailchimp schedule encoding failed")
	}

	endpoint := fmt.Sprintf("%s/campaigns/%s/actions/schedule", c.BaseURL, campaignID)
	resp, err := c.HTTP().Post(ctx, endpoint, body, c.headers())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "mailchimp schedule failed")
	}
	return c.DecodeResponse(resp, nil)
}

type memberUpsertRequest struct {
	EmailAddress string            `json:"email_address"`
	StatusIfNew  string            `json:"status_if_new"`
	MergeFields  map[string]string `json:"merge_fields,omitempty"`
}

type memberTagsRequest struct {
	Tags []memberTag `json:"tags"`
}

type memberTag struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// AddSubscriber upserts a list member keyed by the MD5 of the email and then
// assigns its tags. The result is true only when both calls succeed.
func (c *Connector) AddSubscriber(ctx context.Context, listID string, subscriber core.Subscriber) (bool, error) {
	if subscriber.Email == "" {
		return false, errors.New(errors.ErrorTypeValidation, "subscriber email is required")
	}

	upsert := memberUpsertRequest{
		EmailAddress: subscriber.Email,
		StatusIfNew:  "subscribed",
	}
	if subscriber.FirstName != "" || subscriber.LastName != "" {
		upsert.MergeFields = map[string]string{
			"FNAME": subscriber.FirstName,
			"LNAME": subscriber.LastName,
		}
	}

	body, err := jsonx.MarshalReader(upsert)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeData, "mailchimp member encoding failed")
	}

	hash := subscriberHash(subscriber.Email)
	endpoint := fmt.Sprintf("%s/lists/%s/members/%s", c.BaseURL, listID, hash)

	resp, err := c.HTTP().Put(ctx, endpoint, body, c.headers())
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeConnection, "mailchimp member upsert failed")
	}
	if err := c.DecodeResponse(resp, nil); err != nil {
		return false, err
	}

	if len(subscriber.Tags) > 0 {
		if err := c.tagMember(ctx, listID, hash, subscriber.Tags); err != nil {
			return false, err
		}
	}

	c.Logger().Info("subscriber upserted",
		zap.String("list_id", listID),
		zap.Int("tags", len(subscriber.Tags)))
	return true, nil
}

func (c *Connector) tagMember(ctx context.Context, listID, hash string, tags []string) error {
	request := memberTagsRequest{Tags: make([]memberTag, 0, len(tags))}
	for _, tag := range tags {
		request.Tags = append(request.Tags, memberTag{Name: tag, Status: "active"})
	}

	body, err := jsonx.MarshalReader(request)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "mailchimp tags encoding failed")
	}

	endpoint := fmt.Sprintf("%s/lists/%s/members/%s/tags", c.BaseURL, listID, hash)
	resp, err := c.HTTP().Post(ctx, endpoint, body, c.headers())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "mailchimp tag assignment failed")
	}
	return c.DecodeResponse(resp, nil)
}

type reportResult struct {
	EmailsSent int64 `json:"emails_sent"`
	Opens      struct {
		UniqueOpens int64   `json:"unique_opens"`
		OpenRate    float64 `json:"open_rate"`
	} `json:"opens"`
	Clicks struct {
		UniqueClicks int64   `json:"unique_clicks"`
		ClickRate    float64 `json:"click_rate"`
	} `json:"clicks"`
	Bounces struct {
		HardBounces int64 `json:"hard_bounces"`
		SoftBounces int64 `json:"soft_bounces"`
	} `json:"bounces"`
	Unsubscribed int64 `json:"unsubscribed"`
}

// GetMetrics reads the campaign report
func (c *Connector) GetMetrics(ctx context.Context, campaignID string) (*core.EmailMetrics, error) {
	endpoint := fmt.Sprintf("%s/reports/%s", c.BaseURL, campaignID)

	resp, err := c.HTTP().Get(ctx, endpoint, c.headers())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "mailchimp report call failed")
	}

	var report reportResult
	if err := c.DecodeResponse(resp, &report); err != nil {
		return nil, err
	}

	return &core.EmailMetrics{
		Sent:         report.EmailsSent,
		Opens:        report.Opens.UniqueOpens,
		Clicks:       report.Clicks.UniqueClicks,
		Bounces:      report.Bounces.HardBounces + report.Bounces.SoftBounces,
		Unsubscribes: report.Unsubscribed,
		OpenRate:     report.Opens.OpenRate,
		ClickRate:    report.Clicks.ClickRate,
	}, nil
}
