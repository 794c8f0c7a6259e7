// Package twitter implements the social connector for the Twitter API v2.
package twitter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/genialabs/conduit/pkg/clients"
	"github.com/genialabs/conduit/pkg/config"
	"github.com/genialabs/conduit/pkg/connector/base"
	"github.com/genialabs/conduit/pkg/connector/core"
	"github.com/genialabs/conduit/pkg/connector/registry"
	"github.com/genialabs/conduit/pkg/errors"
	jsonx "github.com/genialabs/conduit/pkg/json"
)

const defaultBaseURL = "https://api.twitter.com/2"

func init() {
	_ = registry.RegisterSocial("twitter", func(credential *core.Credential, cfg *config.Config) (core.SocialConnector, error) {
		return New(credential, cfg)
	})
}

// Connector posts tweets and reads tweet engagement through the v2 API.
type Connector struct {
	*base.Adapter

	credential *core.Credential

	// BaseURL is the API root, overridable in tests
	BaseURL string
}

// New creates a Twitter connector bound to one credential
func New(credential *core.Credential, cfg *config.Config) (*Connector, error) {
	if credential == nil || credential.Token() == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "twitter requires an access token")
	}

	return &Connector{
		Adapter:    base.NewAdapter("twitter", core.FamilySocial, cfg),
		credential: credential,
		BaseURL:    defaultBaseURL,
	}, nil
}

func (c *Connector) headers() map[string]string {
	h := clients.BearerAuth(c.credential.Token())
	h["Content-Type"] = "application/json"
	return h
}

// VerifyCredentials checks the token against /users/me
func (c *Connector) VerifyCredentials(ctx context.Context) bool {
	return c.VerifyCall(ctx, func(ctx context.Context) error {
		resp, err := c.HTTP().Get(ctx, c.BaseURL+"/users/me", c.headers())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "twitter verify call failed")
		}
		return c.DecodeResponse(resp, nil)
	})
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResult struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// Publish posts the content text as a tweet. Media kinds fall back to the
// text plus the media link; the v2 upload flow is not wired.
func (c *Connector) Publish(ctx context.Context, content core.Content) core.PostResponse {
	var response core.PostResponse

	c.Instrument(ctx, "publish", func(ctx context.Context) (bool, string) {
		response = c.publish(ctx, content)
		return response.Success, response.Error
	})

	return response
}

func (c *Connector) publish(ctx context.Context, content core.Content) core.PostResponse {
	text := content.Text
	switch content.Kind {
	case core.ContentLink:
		if content.LinkURL != "" {
			text = text + " " + content.LinkURL
		}
	case core.ContentImage, core.ContentVideo:
		if content.MediaURL != "" {
			text = text + " " + content.MediaURL
		}
	}

	body, err := jsonx.MarshalReader(tweetRequest{Text: text})
	if err != nil {
		return core.PostFail(fmt.Sprintf("twitter request encoding failed: %v", err))
	}

	resp, err := c.HTTP().Post(ctx, c.BaseURL+"/tweets", body, c.headers())
	if err != nil {
		return core.PostFail(fmt.Sprintf("twitter publish failed: %v", err))
	}

	var result tweetResult
	if err := c.DecodeResponse(resp, &result); err != nil {
		return core.PostFail(err.Error())
	}

	if result.Data.ID == "" {
		return core.PostFail("twitter returned no tweet id")
	}

	c.Logger().Info("tweet published", zap.String("tweet_id", result.Data.ID))
	return core.PostOK(result.Data.ID, "https://twitter.com/i/web/status/"+result.Data.ID)
}

type tweetMetricsResult struct {
	Data struct {
		PublicMetrics struct {
			RetweetCount    int64 `json:"retweet_count"`
			ReplyCount      int64 `json:"reply_count"`
			LikeCount       int64 `json:"like_count"`
			QuoteCount      int64 `json:"quote_count"`
			ImpressionCount int64 `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// GetMetrics reads the tweet's public metrics
func (c *Connector) GetMetrics(ctx context.Context, postID string) (*core.SocialMetrics, error) {
	endpoint := fmt.Sprintf("%s/tweets/%s?tweet.fields=public_metrics", c.BaseURL, postID)

	resp, err := c.HTTP().Get(ctx, endpoint, c.headers())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "twitter metrics call failed")
	}

	var result tweetMetricsResult
	if err := c.DecodeResponse(resp, &result); err != nil {
		return nil, err
	}

	pm := result.Data.PublicMetrics
	return &core.SocialMetrics{
		Likes:      pm.LikeCount,
		Shares:     pm.RetweetCount + pm.QuoteCount,
		Comments:   pm.ReplyCount,
		Reach:      pm.ImpressionCount,
		Engagement: float64(pm.LikeCount + pm.RetweetCount + pm.QuoteCount + pm.ReplyCount),
	}, nil
}
