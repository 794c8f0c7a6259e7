// Package youtube implements the social connector for YouTube using the
// official Google API client. Video kinds are uploaded by streaming the
// media URL; other kinds have no YouTube equivalent.
package youtube

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/genialabs/conduit/pkg/config"
	"github.com/genialabs/conduit/pkg/connector/base"
	"github.com/genialabs/conduit/pkg/connector/core"
	"github.com/genialabs/conduit/pkg/connector/registry"
	"github.com/genialabs/conduit/pkg/errors"
)

func init() {
	_ = registry.RegisterSocial("youtube", func(credential *core.Credential, cfg *config.Config) (core.SocialConnector, error) {
		return New(credential, cfg)
	})
}

// Connector uploads videos and reads video statistics.
type Connector struct {
	*base.Adapter

	credential *core.Credential
	service    *youtubeapi.Service
}

// New creates a YouTube connector bound to one credential. The Google client
// is built lazily so construction never performs network IO.
func New(credential *core.Credential, cfg *config.Config) (*Connector, error) {
	if credential == nil || credential.Token() == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "youtube requires an access token")
	}

	return &Connector{
		Adapter:    base.NewAdapter("youtube", core.FamilySocial, cfg),
		credential: credential,
	}, nil
}

// client returns the YouTube API service, building it on first use
func (c *Connector) client(ctx context.Context) (*youtubeapi.Service, error) {
	if c.service != nil {
		return c.service, nil
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken:  c.credential.Token(),
		RefreshToken: c.credential.RefreshToken,
	})

	service, err := youtubeapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to build youtube client")
	}

	c.service = service
	return service, nil
}

// VerifyCredentials lists the authenticated user's channel
func (c *Connector) VerifyCredentials(ctx context.Context) bool {
	return c.VerifyCall(ctx, func(ctx context.Context) error {
		service, err := c.client(ctx)
		if err != nil {
			return err
		}

		result, err := service.Channels.List([]string{"id"}).Mine(true).Context(ctx).Do()
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeAuthentication, "youtube channel lookup failed")
		}
		if len(result.Items) == 0 {
			return errors.New(errors.ErrorTypeAuthentication, "token has no youtube channel")
		}
		return nil
	})
}

// Publish uploads the video behind the content's media URL
func (c *Connector) Publish(ctx context.Context, content core.Content) core.PostResponse {
	var response core.PostResponse

	c.Instrument(ctx, "publish", func(ctx context.Context) (bool, string) {
		response = c.publish(ctx, content)
		return response.Success, response.Error
	})

	return response
}

func (c *Connector) publish(ctx context.Context, content core.Content) core.PostResponse {
	if content.Kind != core.ContentVideo || content.MediaURL == "" {
		return core.PostFail("youtube requires video content")
	}

	service, err := c.client(ctx)
	if err != nil {
		return core.PostFail(err.Error())
	}

	media, err := c.HTTP().Get(ctx, content.MediaURL, nil)
	if err != nil {
		return core.PostFail(fmt.Sprintf("failed to fetch video media: %v", err))
	}
	defer media.Body.Close()
	if media.StatusCode < 200 || media.StatusCode >= 300 {
		return core.PostFail(fmt.Sprintf("video media fetch returned status %d", media.StatusCode))
	}

	video := &youtubeapi.Video{
		Snippet: &youtubeapi.VideoSnippet{
			Title:       title(content.Text),
			Description: content.Text,
		},
		Status: &youtubeapi.VideoStatus{PrivacyStatus: "public"},
	}

	uploaded, err := service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(media.Body).
		Context(ctx).
		Do()
	if err != nil {
		return core.PostFail(fmt.Sprintf("youtube upload failed: %v", err))
	}

	c.Logger().Info("video uploaded", zap.String("video_id", uploaded.Id))
	return core.PostOK(uploaded.Id, "https://www.youtube.com/watch?v="+uploaded.Id)
}

// title derives the video title from the caption, truncated to the
// platform's 100 character limit
func title(text string) string {
	if text == "" {
		return "Untitled"
	}
	runes := []rune(text)
	if len(runes) > 100 {
		return string(runes[:97]) + "..."
	}
	return text
}

// GetMetrics reads the video's statistics
func (c *Connector) GetMetrics(ctx context.Context, postID string) (*core.SocialMetrics, error) {
	service, err := c.client(ctx)
	if err != nil {
		return nil, err
	}

	result, err := service.Videos.List([]string{"statistics"}).Id(postID).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "youtube statistics call failed")
	}
	if len(result.Items) == 0 {
		return nil, errors.New(errors.ErrorTypeNotFound, "video not found: "+postID)
	}

	stats := result.Items[0].Statistics
	views := int64(stats.ViewCount)
	likes := int64(stats.LikeCount)
	comments := int64(stats.CommentCount)

	c.Logger().Debug("video statistics",
		zap.String("video_id", postID),
		zap.String("views", strconv.FormatInt(views, 10)))

	return &core.SocialMetrics{
		Likes:      likes,
		Comments:   comments,
		Reach:      views,
		Engagement: float64(likes + comments),
	}, nil
}
