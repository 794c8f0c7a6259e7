// Package openai implements the image generation connector for the OpenAI
// images API. Generation calls retry transient failures under the adapter's
// retry policy.
package openai

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

const defaultBaseURL = "https://api.openai.com/v1"

const defaultModel = "dall-e-3"

func init() {
	_ = registry.RegisterImage("openai", func(credential *core.Credential, cfg *config.Config) (core.ImageConnector, error) {
		return New(credential, cfg)
	})
}

// Connector generates images from prompts.
type Connector struct {
	*base.Adapter

	credential *core.Credential

	// BaseURL is the API root, overridable in tests
	BaseURL string
	// Model selects the generation model
	Model string
}

// New creates an OpenAI connector bound to one credential
func New(credential *core.Credential, cfg *config.Config) (*Connector, error) {
	if credential == nil || credential.Token() == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "openai requires an api key")
	}

	return &Connector{
		Adapter:    base.NewAdapter("openai", core.FamilyImage, cfg),
		credential: credential,
		BaseURL:    defaultBaseURL,
		Model:      defaultModel,
	}, nil
}

func (c *Connector) headers() map[string]string {
	h := clients.BearerAuth(c.credential.Token())
	h["Content-Type"] = "application/json"
	return h
}

// VerifyCredentials checks the key against the models listing
func (c *Connector) VerifyCredentials(ctx context.Context) bool {
	return c.VerifyCall(ctx, func(ctx context.Context) error {
		resp, err := c.HTTP().Get(ctx, c.BaseURL+"/models", c.headers())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "openai verify call failed")
		}
		return c.DecodeResponse(resp, nil)
	})
}

type generationRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
	Style   string `json:"style,omitempty"`
}

type generationResult struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Generate runs the generation call, retrying transient failures. The result
// status carries the HTTP-equivalent code for the final outcome.
func (c *Connector) Generate(ctx context.Context, request core.ImageRequest) core.ImageGenerationResult {
	var result core.ImageGenerationResult

	c.Instrument(ctx, "generate", func(ctx context.Context) (bool, string) {
		result = c.generate(ctx, request)
		return result.Success, result.Error
	})

	return result
}

func (c *Connector) generate(ctx context.Context, request core.ImageRequest) core.ImageGenerationResult {
	if request.Prompt == "" {
		return core.ImageFail("prompt is required", 400)
	}

	count := request.Count
	if count <= 0 {
		count = 1
	}

	payload := generationRequest{
		Model:   c.Model,
		Prompt:  request.Prompt,
		N:       count,
		Size:    request.Size,
		Quality: request.Quality,
		Style:   request.Style,
	}

	var urls []string
	err := c.Retry().ExecuteWithCondition(ctx, func() error {
		body, err := jsonx.MarshalReader(payload)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "openai request encoding failed")
		}

		resp, err := c.HTTP().Post(ctx, c.BaseURL+"/images/generations", body, c.headers())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "openai generation call failed")
		}

		var generated generationResult
		if err := c.DecodeResponse(resp, &generated); err != nil {
			return err
		}

		urls = urls[:0]
		for _, item := range generated.Data {
			if item.URL != "" {
				urls = append(urls, item.URL)
			}
		}
		if len(urls) == 0 {
			return errors.New(errors.ErrorTypeData, "openai returned no image urls")
		}
		return nil
	}, errors.IsRetryable)

	if err != nil {
		return core.ImageFail(fmt.Sprintf("image generation failed: %v", err), statusFor(err))
	}

	c.Logger().Info("images generated", zap.Int("count", len(urls)))
	return core.ImageOK(urls)
}

// statusFor maps the final error back to an HTTP-equivalent status
func statusFor(err error) int {
	switch {
	case errors.IsType(err, errors.ErrorTypeAuthentication):
		return 401
	case errors.IsType(err, errors.ErrorTypeRateLimit):
		return 429
	case errors.IsType(err, errors.ErrorTypeValidation):
		return 400
	default:
		return 500
	}
}
