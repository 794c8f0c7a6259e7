// Package convertkit implements the email connector for the ConvertKit v3
// API. ConvertKit authenticates through a query parameter carried on every
// call instead of a header.
package convertkit

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/genialabs/conduit/pkg/config"
	"github.com/genialabs/conduit/pkg/connector/base"
	"github.com/genialabs/conduit/pkg/connector/core"
	"github.com/genialabs/conduit/pkg/connector/registry"
	"github.com/genialabs/conduit/pkg/errors"
	jsonx "github.com/genialabs/conduit/pkg/json"
)

const defaultBaseURL = "https://api.convertkit.com/v3"

func init() {
	_ = registry.RegisterEmail("convertkit", func(credential *core.Credential, cfg *config.Config) (core.EmailConnector, error) {
		return New(credential, cfg)
	})
}

// Connector creates broadcasts for the account behind the API secret.
type Connector struct {
	*base.Adapter

	credential *core.Credential

	// BaseURL is the API root, overridable in tests
	BaseURL string
}

// New creates a ConvertKit connector bound to one credential
func New(credential *core.Credential, cfg *config.Config) (*Connector, error) {
	if credential == nil || credential.Token() == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "convertkit requires an api key")
	}

	return &Connector{
		Adapter:    base.NewAdapter("convertkit", core.FamilyEmail, cfg),
		credential: credential,
		BaseURL:    defaultBaseURL,
	}, nil
}

// withKey appends the auth query parameter to an endpoint
func (c *Connector) withKey(endpoint string) string {
	return endpoint + "?api_secret=" + url.QueryEscape(c.credential.Token())
}

// VerifyCredentials checks the key against the account endpoint
func (c *Connector) VerifyCredentials(ctx context.Context) bool {
	return c.VerifyCall(ctx, func(ctx context.Context) error {
		resp, err := c.HTTP().Get(ctx, c.withKey(c.BaseURL+"/account"), nil)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "convertkit verify call failed")
		}
		return c.DecodeResponse(resp, nil)
	})
}

type broadcastRequest struct {
	APISecret string `json:"api_secret"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	Public    bool   `json:"public"`
	SendAt    string `json:"send_at,omitempty"`
}

type broadcastResult struct {
	Broadcast struct {
		ID int64 `json:"id"`
	} `json:"broadcast"`
}

// CreateCampaign creates a broadcast. A schedule time maps to the broadcast's
// send_at; without one ConvertKit queues the send immediately.
func (c *Connector) CreateCampaign(ctx context.Context, campaign core.Campaign) core.CampaignResponse {
	var response core.CampaignResponse

	c.Instrument(ctx, "create_campaign", func(ctx context.Context) (bool, string) {
		response = c.createCampaign(ctx, campaign)
		return response.Success, response.Error
	})

	return response
}

func (c *Connector) createCampaign(ctx context.Context, campaign core.Campaign) core.CampaignResponse {
	request := broadcastRequest{
		APISecret: c.credential.Token(),
		Subject:   campaign.Subject,
		Content:   campaign.HTMLBody,
	}
	if campaign.ScheduledAt != nil {
		request.SendAt = campaign.ScheduledAt.UTC().Format(time.RFC3339)
	}

	body, err := jsonx.MarshalReader(request)
	if err != nil {
		return core.CampaignFail(fmt.Sprintf("convertkit request encoding failed: %v", err))
	}

	headers := map[string]string{"Content-Type": "application/json"}
	resp, err := c.HTTP().Post(ctx, c.BaseURL+"/broadcasts", body, headers)
	if err != nil {
		return core.CampaignFail(fmt.Sprintf("convertkit broadcast creation failed: %v", err))
	}

	var created broadcastResult
	if err := c.DecodeResponse(resp, &created); err != nil {
		return core.CampaignFail(err.Error())
	}
	if created.Broadcast.ID == 0 {
		return core.CampaignFail("convertkit returned no broadcast id")
	}

	broadcastID := fmt.Sprintf("%d", created.Broadcast.ID)
	c.Logger().Info("broadcast created", zap.String("broadcast_id", broadcastID))
	return core.CampaignOK(broadcastID)
}

type broadcastStatsResult struct {
	Broadcast struct {
		Stats struct {
			Recipients   int64   `json:"recipients"`
			OpenRate     float64 `json:"open_rate"`
			ClickRate    float64 `json:"click_rate"`
			Unsubscribes int64   `json:"unsubscribes"`
			TotalClicks  int64   `json:"total_clicks"`
		} `json:"stats"`
	} `json:"broadcast"`
}

// GetMetrics reads the broadcast stats. ConvertKit reports rates, so the
// absolute open count is derived from recipients.
func (c *Connector) GetMetrics(ctx context.Context, campaignID string) (*core.EmailMetrics, error) {
	endpoint := c.withKey(fmt.Sprintf("%s/broadcasts/%s/stats", c.BaseURL, campaignID))

	resp, err := c.HTTP().Get(ctx, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "convertkit stats call failed")
	}

	var result broadcastStatsResult
	if err := c.DecodeResponse(resp, &result); err != nil {
		return nil, err
	}

	stats := result.Broadcast.Stats
	return &core.EmailMetrics{
		Sent:         stats.Recipients,
		Opens:        int64(float64(stats.Recipients) * stats.OpenRate / 100),
		Clicks:       stats.TotalClicks,
		Unsubscribes: stats.Unsubscribes,
		OpenRate:     stats.OpenRate,
		ClickRate:    stats.ClickRate,
	}, nil
}
