// Package mailerlite implements the email connector for the MailerLite
// "connect" API.
package mailerlite

import (
	"context"
	"fmt"
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

const defaultBaseURL = "https://connect.mailerlite.com/api"

func init() {
	_ = registry.RegisterEmail("mailerlite", func(credential *core.Credential, cfg *config.Config) (core.EmailConnector, error) {
		return New(credential, cfg)
	})
}

// Connector creates and schedules regular campaigns.
type Connector struct {
	*base.Adapter

	credential *core.Credential

	// BaseURL is the API root, overridable in tests
	BaseURL string
}

// New creates a MailerLite connector bound to one credential
func New(credential *core.Credential, cfg *config.Config) (*Connector, error) {
	if credential == nil || credential.Token() == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "mailerlite requires an api token")
	}

	return &Connector{
		Adapter:    base.NewAdapter("mailerlite", core.FamilyEmail, cfg),
		credential: credential,
		BaseURL:    defaultBaseURL,
	}, nil
}

func (c *Connector) headers() map[string]string {
	h := clients.BearerAuth(c.credential.Token())
	h["Content-Type"] = "application/json"
	return h
}

// VerifyCredentials lists one campaign as the cheapest authenticated call
func (c *Connector) VerifyCredentials(ctx context.Context) bool {
	return c.VerifyCall(ctx, func(ctx context.Context) error {
		resp, err := c.HTTP().Get(ctx, c.BaseURL+"/campaigns?filter[status]=sent&limit=1", c.headers())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "mailerlite verify call failed")
		}
		return c.DecodeResponse(resp, nil)
	})
}

type campaignEmail struct {
	Subject  string `json:"subject"`
	FromName string `json:"from_name"`
	From     string `json:"from"`
	Content  string `json:"content"`
}

type campaignCreateRequest struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Groups   []string        `json:"groups,omitempty"`
	Emails   []campaignEmail `json:"emails"`
}

type campaignResult struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type scheduleTime struct {
	Date    string `json:"date"`
	Hours   string `json:"hours"`
	Minutes string `json:"minutes"`
}

type scheduleCampaignRequest struct {
	Delivery string        `json:"delivery"`
	Schedule *scheduleTime `json:"schedule,omitempty"`
}

// CreateCampaign creates the campaign and schedules its delivery. Without a
// schedule time the delivery is instant.
func (c *Connector) CreateCampaign(ctx context.Context, campaign core.Campaign) core.CampaignResponse {
	var response core.CampaignResponse

	c.Instrument(ctx, "create_campaign", func(ctx context.Context) (bool, string) {
		response = c.createCampaign(ctx, campaign)
		return response.Success, response.Error
	})

	return response
}

func (c *Connector) createCampaign(ctx context.Context, campaign core.Campaign) core.CampaignResponse {
	request := campaignCreateRequest{
		Name: campaign.Subject,
		Type: "regular",
		Emails: []campaignEmail{{
			Subject:  campaign.Subject,
			FromName: campaign.FromName,
			From:     campaign.FromEmail,
			Content:  campaign.HTMLBody,
		}},
	}
	if campaign.ListID != "" {
		request.Groups = []string{campaign.ListID}
	}

	body, err := jsonx.MarshalReader(request)
	if err != nil {
		return core.CampaignFail(fmt.Sprintf("mailerlite request encoding failed: %v", err))
	}

	resp, err := c.HTTP().Post(ctx, c.BaseURL+"/campaigns", body, c.headers())
	if err != nil {
		return core.CampaignFail(fmt.Sprintf("mailerlite campaign creation failed: %v", err))
	}

	var created campaignResult
	if err := c.DecodeResponse(resp, &created); err != nil {
		return core.CampaignFail(err.Error())
	}
	if created.Data.ID == "" {
		return core.CampaignFail("mailerlite returned no campaign id")
	}

	if err := c.scheduleCampaign(ctx, created.Data.ID, campaign.ScheduledAt); err != nil {
		return core.CampaignFail(err.Error())
	}

	c.Logger().Info("campaign created", zap.String("campaign_id", created.Data.ID))
	return core.CampaignOK(created.Data.ID)
}

func (c *Connector) scheduleCampaign(ctx context.Context, campaignID string, at *time.Time) error {
	request := scheduleCampaignRequest{Delivery: "instant"}
	if at != nil {
		utc := at.UTC()
		request.Delivery = "scheduled"
		request.Schedule = &scheduleTime{
			Date:    utc.Format("2006-01-02"),
			Hours:   utc.Format("15"),
			Minutes: utc.Format("04"),
		}
	}

	body, err := jsonx.MarshalReader(request)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "mailerlite schedule encoding failed")
	}

	endpoint := fmt.Sprintf("%s/campaigns/%s/schedule", c.BaseURL, campaignID)
	resp, err := c.HTTP().Post(ctx, endpoint, body, c.headers())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "mailerlite schedule failed")
	}
	return c.DecodeResponse(resp, nil)
}

type campaignStatsResult struct {
	Data struct {
		Emails []struct {
			Stats struct {
				Sent           int64   `json:"sent"`
				OpensCount     int64   `json:"opens_count"`
				ClicksCount    int64   `json:"clicks_count"`
				HardBounces    int64   `json:"hard_bounces_count"`
				SoftBounces    int64   `json:"soft_bounces_count"`
				Unsubscribes   int64   `json:"unsubscribes_count"`
				OpenRate       struct {
					Float float64 `json:"float"`
				} `json:"open_rate"`
				ClickRate struct {
					Float float64 `json:"float"`
				} `json:"click_rate"`
			} `json:"stats"`
		} `json:"emails"`
	} `json:"data"`
}

// GetMetrics reads the campaign's delivery stats
func (c *Connector) GetMetrics(ctx context.Context, campaignID string) (*core.EmailMetrics, error) {
	endpoint := fmt.Sprintf("%s/campaigns/%s", c.BaseURL, campaignID)

	resp, err := c.HTTP().Get(ctx, endpoint, c.headers())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "mailerlite stats call failed")
	}

	var result campaignStatsResult
	if err := c.DecodeResponse(resp, &result); err != nil {
		return nil, err
	}

	metrics := &core.EmailMetrics{}
	for _, email := range result.Data.Emails {
		metrics.Sent += email.Stats.Sent
		metrics.Opens += email.Stats.OpensCount
		metrics.Clicks += email.Stats.ClicksCount
		metrics.Bounces += email.Stats.HardBounces + email.Stats.SoftBounces
		metrics.Unsubscribes += email.Stats.Unsubscribes
		metrics.OpenRate = email.Stats.OpenRate.Float
		metrics.ClickRate = email.Stats.ClickRate.Float
	}

	return metrics, nil
}
