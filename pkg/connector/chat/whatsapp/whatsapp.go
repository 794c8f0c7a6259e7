// Package whatsapp implements the chat connector for WhatsApp delivery
// through the Twilio messaging API. Sender and recipient numbers are carried
// in Twilio's whatsapp: address form.
package whatsapp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/genialabs/conduit/pkg/clients"
	"github.com/genialabs/conduit/pkg/config"
	"github.com/genialabs/conduit/pkg/connector/base"
	"github.com/genialabs/conduit/pkg/connector/core"
	"github.com/genialabs/conduit/pkg/connector/registry"
	"github.com/genialabs/conduit/pkg/errors"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

func init() {
	_ = registry.RegisterChat("whatsapp", func(credential *core.Credential, cfg *config.Config) (core.ChatConnector, error) {
		return New(credential, cfg)
	})
}

// Connector sends WhatsApp messages from the account's registered number.
type Connector struct {
	*base.Adapter

	credential *core.Credential

	// BaseURL is the Twilio API root, overridable in tests
	BaseURL string
}

// New creates a WhatsApp connector bound to one credential. The credential
// carries the Twilio account SID, the auth token and the sending number.
func New(credential *core.Credential, cfg *config.Config) (*Connector, error) {
	if credential == nil || credential.AccountID == "" || credential.Token() == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "whatsapp requires a twilio account sid and auth token")
	}
	if credential.PhoneNumber == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "whatsapp requires a sending phone number")
	}

	return &Connector{
		Adapter:    base.NewAdapter("whatsapp", core.FamilyChat, cfg),
		credential: credential,
		BaseURL:    defaultBaseURL,
	}, nil
}

func (c *Connector) headers() map[string]string {
	return clients.BasicAuth(c.credential.AccountID, c.credential.Token())
}

// address wraps a number in Twilio's whatsapp: form, once
func address(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

// VerifyCredentials checks the SID and token against the account resource
func (c *Connector) VerifyCredentials(ctx context.Context) bool {
	return c.VerifyCall(ctx, func(ctx context.Context) error {
		endpoint := fmt.Sprintf("%s/Accounts/%s.json", c.BaseURL, c.credential.AccountID)

		resp, err := c.HTTP().Get(ctx, endpoint, c.headers())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "twilio verify call failed")
		}
		return c.DecodeResponse(resp, nil)
	})
}

type messageResult struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// Send delivers one message, retrying transient failures
func (c *Connector) Send(ctx context.Context, message core.Message) core.PostResponse {
	var response core.PostResponse

	c.Instrument(ctx, "send", func(ctx context.Context) (bool, string) {
		response = c.send(ctx, message)
		return response.Success, response.Error
	})

	return response
}

func (c *Connector) send(ctx context.Context, message core.Message) core.PostResponse {
	if message.To == "" {
		return core.PostFail("recipient number is required")
	}
	if message.Body == "" && message.MediaURL == "" {
		return core.PostFail("message body or media url is required")
	}

	values := url.Values{}
	values.Set("From", address(c.credential.PhoneNumber))
	values.Set("To", address(message.To))
	if message.Body != "" {
		values.Set("Body", message.Body)
	}
	if message.MediaURL != "" {
		values.Set("MediaUrl", message.MediaURL)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.BaseURL, c.credential.AccountID)

	var result messageResult
	err := c.Retry().ExecuteWithCondition(ctx, func() error {
		resp, err := c.HTTP().PostForm(ctx, endpoint, values, c.headers())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "twilio send failed")
		}
		return c.DecodeResponse(resp, &result)
	}, errors.IsRetryable)
	if err != nil {
		return core.PostFail(fmt.Sprintf("whatsapp send failed: %v", err))
	}

	if result.SID == "" {
		return core.PostFail("twilio returned no message sid")
	}

	c.Logger().Info("message sent",
		zap.String("message_sid", result.SID),
		zap.String("status", result.Status))
	return core.PostOK(result.SID, "")
}
