// Package instagram implements the social connector for the Instagram Graph
// API. Publishing is a two-phase flow: a media container is created first and
// then published. A failure between the phases leaves an orphaned container
// on the platform; it is reported and logged, never rolled back.
package instagram

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

// ErrMediaRequired is the user-facing message for text-only content
const ErrMediaRequired = "Instagram requiere una imagen o video"

func init() {
	_ = registry.RegisterSocial("instagram", func(credential *core.Credential, cfg *config.Config) (core.SocialConnector, error) {
		return New(credential, cfg)
	})
}

// Connector publishes media to an Instagram business account.
type Connector struct {
	*base.Adapter

	credential *core.Credential

	// BaseURL is the Graph API root, overridable in tests
	BaseURL string
}

// New creates an Instagram connector bound to one credential. The credential
// must carry the business account id the media is published under.
func New(credential *core.Credential, cfg *config.Config) (*Connector, error) {
	if credential == nil || credential.Token() == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "instagram requires an access token")
	}
	if credential.AccountID == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "instagram requires a business account id")
	}

	return &Connector{
		Adapter:    base.NewAdapter("instagram", core.FamilySocial, cfg),
		credential: credential,
		BaseURL:    defaultBaseURL,
	}, nil
}

// VerifyCredentials checks the token against the business account node
func (c *Connector) VerifyCredentials(ctx context.Context) bool {
	return c.VerifyCall(ctx, func(ctx context.Context) error {
		endpoint := fmt.Sprintf("%s/%s?fields=id&access_token=%s",
			c.BaseURL, c.credential.AccountID, url.QueryEscape(c.credential.Token()))

		resp, err := c.HTTP().Get(ctx, endpoint, nil)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "instagram verify call failed")
		}
		return c.DecodeResponse(resp, nil)
	})
}

type nodeResult struct {
	ID string `json:"id"`
}

// Publish runs the container/publish sequence. Text-only content fails
// before any network call.
func (c *Connector) Publish(ctx context.Context, content core.Content) core.PostResponse {
	var response core.PostResponse

	c.Instrument(ctx, "publish", func(ctx context.Context) (bool, string) {
		response = c.publish(ctx, content)
		return response.Success, response.Error
	})

	return response
}

func (c *Connector) publish(ctx context.Context, content core.Content) core.PostResponse {
	if content.MediaURL == "" {
		return core.PostFail(ErrMediaRequired)
	}

	containerID, err := c.createContainer(ctx, content)
	if err != nil {
		return core.PostFail(err.Error())
	}

	postID, err := c.publishContainer(ctx, containerID)
	if err != nil {
		partial := &errors.PartialPublishError{
			Platform:   "instagram",
			ResourceID: containerID,
			Cause:      err,
		}
		c.Logger().Error("publish failed after container creation",
			zap.String("container_id", containerID),
			zap.Error(err))
		return core.PostFail(partial.Error())
	}

	c.Logger().Info("media published",
		zap.String("post_id", postID),
		zap.String("container_id", containerID))
	return core.PostOK(postID, "https://www.instagram.com/p/"+postID)
}

// createContainer registers the media with the platform and returns the
// container id for the publish phase
func (c *Connector) createContainer(ctx context.Context, content core.Content) (string, error) {
	values := url.Values{}
	values.Set("access_token", c.credential.Token())
	if content.Text != "" {
		values.Set("caption", content.Text)
	}
	if content.Kind == core.ContentVideo {
		values.Set("media_type", "REELS")
		values.Set("video_url", content.MediaURL)
	} else {
		values.Set("image_url", content.MediaURL)
	}

	endpoint := fmt.Sprintf("%s/%s/media", c.BaseURL, c.credential.AccountID)

	resp, err := c.HTTP().PostForm(ctx, endpoint, values, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConnection, "instagram container creation failed")
	}

	var result nodeResult
	if err := c.DecodeResponse(resp, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New(errors.ErrorTypeData, "instagram returned no container id")
	}

	return result.ID, nil
}

// publishContainer completes the flow, turning the container into a live post
func (c *Connector) publishContainer(ctx context.Context, containerID string) (string, error) {
	values := url.Values{}
	values.Set("access_token", c.credential.Token())
	values.Set("creation_id", containerID)

	endpoint := fmt.Sprintf("%s/%s/media_publish", c.BaseURL, c.credential.AccountID)

	resp, err := c.HTTP().PostForm(ctx, endpoint, values, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConnection, "instagram media publish failed")
	}

	var result nodeResult
	if err := c.DecodeResponse(resp, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New(errors.ErrorTypeData, "instagram returned no post id")
	}

	return result.ID, nil
}

type insightsResult struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value int64 `json:"value"`
		} `json:"values"`
	} `json:"data"`
}

// GetMetrics reads post insights (likes, comments, reach)
func (c *Connector) GetMetrics(ctx context.Context, postID string) (*core.SocialMetrics, error) {
	endpoint := fmt.Sprintf("%s/%s/insights?metric=likes,comments,shares,reach&access_token=%s",
		c.BaseURL, url.PathEscape(postID), url.QueryEscape(c.credential.Token()))

	resp, err := c.HTTP().Get(ctx, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "instagram insights call failed")
	}

	var result insightsResult
	if err := c.DecodeResponse(resp, &result); err != nil {
		return nil, err
	}

	metrics := &core.SocialMetrics{}
	for _, entry := range result.Data {
		if len(entry.Values) == 0 {
			continue
		}
		value := entry.Values[0].Value
		switch entry.Name {
		case "likes":
			metrics.Likes = value
		case "comments":
			metrics.Comments = value
		case "shares":
			metrics.Shares = value
		case "reach":
			metrics.Reach = value
		}
	}
	metrics.Engagement = float64(metrics.Likes + metrics.Comments + metrics.Shares)

	return metrics, nil
}
