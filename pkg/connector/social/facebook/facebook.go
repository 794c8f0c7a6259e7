// Package facebook implements the social connector for the Facebook Graph API.
package facebook

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/genialabs/conduit/pkg/config"
	"github.com/genialabs/conduit/pkg/connector/base"
	"github.com/genialabs/conduit/pkg/connector/core"
	"github.com/genialabs/conduit/pkg/connector/registry"
	"github.com/genialabs/conduit/pkg/errors"
)

const defaultBaseURL = "https://graph.facebook.com/v19.0"

func init() {
	_ = registry.RegisterSocial("facebook", func(credential *core.Credential, cfg *config.Config) (core.SocialConnector, error) {
		return New(credential, cfg)
	})
}

// Connector publishes to a Facebook page feed and reads post engagement.
type Connector struct {
	*base.Adapter

	credential *core.Credential

	// BaseURL is the Graph API root, overridable in tests
	BaseURL string
}

// New creates a Facebook connector bound to one credential
func New(credential *core.Credential, cfg *config.Config) (*Connector, error) {
	if credential == nil || credential.Token() == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "facebook requires an access token")
	}

	return &Connector{
		Adapter:    base.NewAdapter("facebook", core.FamilySocial, cfg),
		credential: credential,
		BaseURL:    defaultBaseURL,
	}, nil
}

// target returns the publish target: the managed page when the credential
// names one, otherwise the token owner's own feed.
func (c *Connector) target() string {
	if c.credential.PageID != "" {
		return c.credential.PageID
	}
	return "me"
}

// VerifyCredentials checks the token against the Graph /me endpoint
func (c *Connector) VerifyCredentials(ctx context.Context) bool {
	return c.VerifyCall(ctx, func(ctx context.Context) error {
		endpoint := fmt.Sprintf("%s/me?fields=id&access_token=%s", c.BaseURL, url.QueryEscape(c.credential.Token()))

		resp, err := c.HTTP().Get(ctx, endpoint, nil)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "facebook verify call failed")
		}
		return c.DecodeResponse(resp, nil)
	})
}

type publishResult struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

// Publish posts the content to the feed, or to /photos for image content
func (c *Connector) Publish(ctx context.Context, content core.Content) core.PostResponse {
	var response core.PostResponse

	c.Instrument(ctx, "publish", func(ctx context.Context) (bool, string) {
		response = c.publish(ctx, content)
		return response.Success, response.Error
	})

	return response
}

func (c *Connector) publish(ctx context.Context, content core.Content) core.PostResponse {
	values := url.Values{}
	values.Set("access_token", c.credential.Token())

	var endpoint string
	switch content.Kind {
	case core.ContentImage:
		endpoint = fmt.Sprintf("%s/%s/photos", c.BaseURL, c.target())
		values.Set("url", content.MediaURL)
		if content.Text != "" {
			values.Set("caption", content.Text)
		}
	case core.ContentLink:
		endpoint = fmt.Sprintf("%s/%s/feed", c.BaseURL, c.target())
		values.Set("link", content.LinkURL)
		if content.Text != "" {
			values.Set("message", content.Text)
		}
	default:
		endpoint = fmt.Sprintf("%s/%s/feed", c.BaseURL, c.target())
		values.Set("message", content.Text)
	}

	resp, err := c.HTTP().PostForm(ctx, endpoint, values, nil)
	if err != nil {
		return core.PostFail(fmt.Sprintf("facebook publish failed: %v", err))
	}

	var result publishResult
	if err := c.DecodeResponse(resp, &result); err != nil {
		return core.PostFail(err.Error())
	}

	postID := result.PostID
	if postID == "" {
		postID = result.ID
	}
	if postID == "" {
		return core.PostFail("facebook returned no post id")
	}

	c.Logger().Info("post published", zap.String("post_id", postID))
	return core.PostOK(postID, "https://www.facebook.com/"+postID)
}

type metricsResult struct {
	Likes struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"likes"`
	Comments struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"comments"`
	Shares struct {
		Count int64 `json:"count"`
	} `json:"shares"`
}

// GetMetrics reads engagement counters for a published post
func (c *Connector) GetMetrics(ctx context.Context, postID string) (*core.SocialMetrics, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=likes.summary(true),comments.summary(true),shares&access_token=%s",
		c.BaseURL, url.PathEscape(postID), url.QueryEscape(c.credential.Token()))

	resp, err := c.HTTP().Get(ctx, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "facebook metrics call failed")
	}

	var result metricsResult
	if err := c.DecodeResponse(resp, &result); err != nil {
		return nil, err
	}

	likes := result.Likes.Summary.TotalCount
	comments := result.Comments.Summary.TotalCount
	shares := result.Shares.Count

	return &core.SocialMetrics{
		Likes:      likes,
		Shares:     shares,
		Comments:   comments,
		Engagement: float64(likes + shares + comments),
	}, nil
}
