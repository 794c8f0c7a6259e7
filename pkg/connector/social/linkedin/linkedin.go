// Package linkedin implements the social connector for the LinkedIn UGC API.
package linkedin

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

const defaultBaseURL = "https://api.linkedin.com/v2"

func init() {
	_ = registry.RegisterSocial("linkedin", func(credential *core.Credential, cfg *config.Config) (core.SocialConnector, error) {
		return New(credential, cfg)
	})
}

// Connector publishes member posts through the ugcPosts endpoint.
type Connector struct {
	*base.Adapter

	credential *core.Credential

	// BaseURL is the API root, overridable in tests
	BaseURL string
}

// New creates a LinkedIn connector bound to one credential
func New(credential *core.Credential, cfg *config.Config) (*Connector, error) {
	if credential == nil || credential.Token() == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "linkedin requires an access token")
	}

	return &Connector{
		Adapter:    base.NewAdapter("linkedin", core.FamilySocial, cfg),
		credential: credential,
		BaseURL:    defaultBaseURL,
	}, nil
}

func (c *Connector) headers() map[string]string {
	h := clients.BearerAuth(c.credential.Token())
	h["Content-Type"] = "application/json"
	h["X-Restli-Protocol-Version"] = "2.0.0"
	return h
}

// author returns the member URN the post is attributed to. The credential's
// account id is the member id from the OAuth handshake.
func (c *Connector) author() string {
	return "urn:li:person:" + c.credential.AccountID
}

type profileResult struct {
	ID string `json:"id"`
}

// VerifyCredentials checks the token against /me and learns the member id
// when the credential does not carry one.
func (c *Connector) VerifyCredentials(ctx context.Context) bool {
	return c.VerifyCall(ctx, func(ctx context.Context) error {
		resp, err := c.HTTP().Get(ctx, c.BaseURL+"/me", c.headers())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "linkedin verify call failed")
		}

		var profile profileResult
		if err := c.DecodeResponse(resp, &profile); err != nil {
			return err
		}
		if c.credential.AccountID == "" {
			c.credential.AccountID = profile.ID
		}
		return nil
	})
}

type ugcShareContent struct {
	ShareCommentary struct {
		Text string `json:"text"`
	} `json:"shareCommentary"`
	ShareMediaCategory string     `json:"shareMediaCategory"`
	Media              []ugcMedia `json:"media,omitempty"`
}

type ugcMedia struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
}

type ugcPostRequest struct {
	Author          string `json:"author"`
	LifecycleState  string `json:"lifecycleState"`
	SpecificContent struct {
		ShareContent ugcShareContent `json:"com.linkedin.ugc.ShareContent"`
	} `json:"specificContent"`
	Visibility struct {
		MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
	} `json:"visibility"`
}

type ugcPostResult struct {
	ID string `json:"id"`
}

// Publish creates a UGC post for the member
func (c *Connector) Publish(ctx context.Context, content core.Content) core.PostResponse {
	var response core.PostResponse

	c.Instrument(ctx, "publish", func(ctx context.Context) (bool, string) {
		response = c.publish(ctx, content)
		return response.Success, response.Error
	})

	return response
}

func (c *Connector) publish(ctx context.Context, content core.Content) core.PostResponse {
	if c.credential.AccountID == "" {
		return core.PostFail("linkedin member id unknown; verify credentials first")
	}

	request := ugcPostRequest{
		Author:         c.author(),
		LifecycleState: "PUBLISHED",
	}
	request.Visibility.MemberNetworkVisibility = "PUBLIC"
	request.SpecificContent.ShareContent.ShareCommentary.Text = content.Text
	request.SpecificContent.ShareContent.ShareMediaCategory = "NONE"

	if content.Kind == core.ContentLink && content.LinkURL != "" {
		request.SpecificContent.ShareContent.ShareMediaCategory = "ARTICLE"
		request.SpecificContent.ShareContent.Media = []ugcMedia{
			{Status: "READY", OriginalURL: content.LinkURL},
		}
	}

	body, err := jsonx.MarshalReader(request)
	if err != nil {
		return core.PostFail(fmt.Sprintf("linkedin request encoding failed: %v", err))
	}

	resp, err := c.HTTP().Post(ctx, c.BaseURL+"/ugcPosts", body, c.headers())
	if err != nil {
		return core.PostFail(fmt.Sprintf("linkedin publish failed: %v", err))
	}

	postID := resp.Header.Get("X-RestLi-Id")

	var result ugcPostResult
	if err := c.DecodeResponse(resp, &result); err != nil {
		return core.PostFail(err.Error())
	}
	if result.ID != "" {
		postID = result.ID
	}
	if postID == "" {
		return core.PostFail("linkedin returned no post id")
	}

	c.Logger().Info("post published", zap.String("post_id", postID))
	return core.PostOK(postID, "https://www.linkedin.com/feed/update/"+postID)
}

// GetMetrics is not available for member posts through the UGC API; the
// platform restricts share statistics to organization posts.
func (c *Connector) GetMetrics(ctx context.Context, postID string) (*core.SocialMetrics, error) {
	return nil, nil
}
