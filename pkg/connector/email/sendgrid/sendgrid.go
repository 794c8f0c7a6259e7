// Package sendgrid implements the email connector for the SendGrid v3 API
// using the Marketing Campaigns single send flow.
package sendgrid

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

const defaultBaseURL = "https://api.sendgrid.com/v3"

func init() {
	_ = registry.RegisterEmail("sendgrid", func(credential *core.Credential, cfg *config.Config) (core.EmailConnector, error) {
		return New(credential, cfg)
	})
}

// Connector creates single sends against contact lists.
type Connector struct {
	*base.Adapter

	credential *core.Credential

	// BaseURL is the API root, overridable in tests
	BaseURL string
}

// New creates a SendGrid connector bound to one credential
func New(credential *core.Credential, cfg *config.Config) (*Connector, error) {
	if credential == nil || credential.Token() == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "sendgrid requires an api key")
	}

	return &Connector{
		Adapter:    base.NewAdapter("sendgrid", core.FamilyEmail, cfg),
		credential: credential,
		BaseURL:    defaultBaseURL,
	}, nil
}

func (c *Connector) headers() map[string]string {
	h := clients.BearerAuth(c.credential.Token())
	h["Content-Type"] = "application/json"
	return h
}

// VerifyCredentials checks the key against the token scopes endpoint
func (c *Connector) VerifyCredentials(ctx context.Context) bool {
	return c.VerifyCall(ctx, func(ctx context.Context) error {
		resp, err := c.HTTP().Get(ctx, c.BaseURL+"/scopes", c.headers())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "sendgrid verify call failed")
		}
		return c.DecodeResponse(resp, nil)
	})
}

type singleSendRequest struct {
	Name   string `json:"name"`
	SendTo struct {
		ListIDs []string `json:"list_ids,omitempty"`
		All     bool     `json:"all,omitempty"`
	} `json:"send_to"`
	EmailConfig struct {
		Subject     string `json:"subject"`
		HTMLContent string `json:"html_content"`
		SenderID    int    `json:"sender_id,omitempty"`
	} `json:"email_config"`
}

type singleSendResult struct {
	ID string `json:"id"`
}

type singleSendSchedule struct {
	SendAt string `json:"send_at"`
}

// CreateCampaign creates a single send and schedules its delivery. Without a
// schedule time the send is queued immediately.
func (c *Connector) CreateCampaign(ctx context.Context, campaign core.Campaign) core.CampaignResponse {
	var response core.CampaignResponse

	c.Instrument(ctx, "create_campaign", func(ctx context.Context) (bool, string) {
		response = c.createCampaign(ctx, campaign)
		return response.Success, response.Error
	})

	return response
}

func (c *Connector) createCampaign(ctx context.Context, campaign core.Campaign) core.CampaignResponse {
	request := singleSendRequest{Name: campaign.Subject}
	if campaign.ListID != "" {
		request.SendTo.ListIDs = []string{campaign.ListID}
	} else {
		request.SendTo.All = true
	}
	request.EmailConfig.Subject = campaign.Subject
	request.EmailConfig.HTMLContent = campaign.HTMLBody

	body, err := jsonx.MarshalReader(request)
	if err != nil {
		return core.CampaignFail(fmt.Sprintf("sendgrid request encoding failed: %v", err))
	}

	resp, err := c.HTTP().Post(ctx, c.BaseURL+"/marketing/singlesends", body, c.headers())
	if err != nil {
		return core.CampaignFail(fmt.Sprintf("sendgrid single send creation failed: %v", err))
	}

	var created singleSendResult
	if err := c.DecodeResponse(resp, &created); err != nil {
		return core.CampaignFail(err.Error())
	}
	if created.ID == "" {
		return core.CampaignFail("sendgrid returned no single send id")
	}

	sendAt := "now"
	if campaign.ScheduledAt != nil {
		sendAt = campaign.ScheduledAt.UTC().Format(time.RFC3339)
	}

	scheduleBody, err := jsonx.MarshalReader(singleSendSchedule{SendAt: sendAt})
	if err != nil {
		return core.CampaignFail(fmt.Sprintf("sendgrid schedule encoding failed: %v", err))
	}

	endpoint := fmt.Sprintf("%s/marketing/singlesends/%s/schedule", c.BaseURL, created.ID)
	resp, err = c.HTTP().Put(ctx, endpoint, scheduleBody, c.headers())
	if err != nil {
		return core.CampaignFail(fmt.Sprintf("sendgrid schedule failed: %v", err))
	}
	if err := c.DecodeResponse(resp, nil); err != nil {
		return core.CampaignFail(err.Error())
	}

	c.Logger().Info("single send scheduled",
		zap.String("single_send_id", created.ID),
		zap.String("send_at", sendAt))
	return core.CampaignOK(created.ID)
}

type statsResult struct {
	Results []struct {
		Stats struct {
			Delivered    int64 `json:"delivered"`
			UniqueOpens  int64 `json:"unique_opens"`
			UniqueClicks int64 `json:"unique_clicks"`
			Bounces      int64 `json:"bounces"`
			Unsubscribes int64 `json:"unsubscribes"`
		} `json:"stats"`
	} `json:"results"`
}

// GetMetrics reads the single send delivery stats
func (c *Connector) GetMetrics(ctx context.Context, campaignID string) (*core.EmailMetrics, error) {
	endpoint := fmt.Sprintf("%s/marketing/stats/singlesends/%s", c.BaseURL, campaignID)

	resp, err := c.HTTP().Get(ctx, endpoint, c.headers())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "sendgrid stats call failed")
	}

	var stats statsResult
	if err := c.DecodeResponse(resp, &stats); err != nil {
		return nil, err
	}

	metrics := &core.EmailMetrics{}
	for _, result := range stats.Results {
		metrics.Sent += result.Stats.Delivered
		metrics.Opens += result.Stats.UniqueOpens
		metrics.Clicks += result.Stats.UniqueClicks
		metrics.Bounces += result.Stats.Bounces
		metrics.Unsubscribes += result.Stats.Unsubscribes
	}
	if metrics.Sent > 0 {
		metrics.OpenRate = float64(metrics.Opens) / float64(metrics.Sent)
		metrics.ClickRate = float64(metrics.Clicks) / float64(metrics.Sent)
	}

	return metrics, nil
}
