// Package factory builds verified connectors for one user and platform.
//
// Every lookup follows construct-then-verify: resolve the stored credential,
// construct the adapter through the registry, then issue the platform's
// cheapest authenticated call. A missing credential or a failed verification
// yields a nil connector with a nil error; callers branch on nil, never on
// error type. Only infrastructure faults (store outage, unregistered
// platform) surface as errors.
package factory

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/genialabs/conduit/pkg/config"
	"github.com/genialabs/conduit/pkg/connector/core"
	"github.com/genialabs/conduit/pkg/connector/registry"
	"github.com/genialabs/conduit/pkg/credentials"
	"github.com/genialabs/conduit/pkg/logger"
)

// Factory resolves credentials and constructs verified connectors
type Factory struct {
	store    credentials.Store
	registry *registry.Registry
	config   *config.Config
	logger   *zap.Logger
}

// Option customizes a Factory
type Option func(*Factory)

// WithRegistry uses a specific registry instead of the global one
func WithRegistry(r *registry.Registry) Option {
	return func(f *Factory) { f.registry = r }
}

// WithConfig sets the base adapter configuration
func WithConfig(cfg *config.Config) Option {
	return func(f *Factory) { f.config = cfg }
}

// New creates a connector factory backed by the given credential store
func New(store credentials.Store, opts ...Option) *Factory {
	f := &Factory{
		store:    store,
		registry: registry.GetRegistry(),
		logger:   logger.Get().With(zap.String("component", "connector_factory")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// resolve loads the credential for the pair. A nil credential with nil error
// means the user never connected the platform.
func (f *Factory) resolve(ctx context.Context, userID, platform string) (*core.Credential, error) {
	credential, err := f.store.Get(ctx, userID, platform)
	if errors.Is(err, credentials.ErrNotFound) {
		f.logger.Debug("no credential stored",
			zap.String("user_id", userID),
			zap.String("platform", platform))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return credential, nil
}

// verify runs VerifyCredentials and closes the connector when it fails
func (f *Factory) verify(ctx context.Context, connector core.Connector, userID string) bool {
	if connector.VerifyCredentials(ctx) {
		return true
	}

	f.logger.Warn("credential verification failed",
		zap.String("user_id", userID),
		zap.String("platform", connector.Platform()))
	_ = connector.Close(ctx)
	return false
}

// Social returns a verified social connector for the user, or nil when the
// credential is missing or invalid.
func (f *Factory) Social(ctx context.Context, userID, platform string) (core.SocialConnector, error) {
	credential, err := f.resolve(ctx, userID, platform)
	if err != nil || credential == nil {
		return nil, err
	}

	connector, err := f.registry.CreateSocial(platform, credential, f.config)
	if err != nil {
		return nil, err
	}

	if !f.verify(ctx, connector, userID) {
		return nil, nil
	}
	return connector, nil
}

// Email returns a verified email connector for the user, or nil when the
// credential is missing or invalid.
func (f *Factory) Email(ctx context.Context, userID, platform string) (core.EmailConnector, error) {
	credential, err := f.resolve(ctx, userID, platform)
	if err != nil || credential == nil {
		return nil, err
	}

	connector, err := f.registry.CreateEmail(platform, credential, f.config)
	if err != nil {
		return nil, err
	}

	if !f.verify(ctx, connector, userID) {
		return nil, nil
	}
	return connector, nil
}

// Image returns a verified image generation connector for the user, or nil
// when the credential is missing or invalid.
func (f *Factory) Image(ctx context.Context, userID, platform string) (core.ImageConnector, error) {
	credential, err := f.resolve(ctx, userID, platform)
	if err != nil || credential == nil {
		return nil, err
	}

	connector, err := f.registry.CreateImage(platform, credential, f.config)
	if err != nil {
		return nil, err
	}

	if !f.verify(ctx, connector, userID) {
		return nil, nil
	}
	return connector, nil
}

// Chat returns a verified chat connector for the user, or nil when the
// credential is missing or invalid.
func (f *Factory) Chat(ctx context.Context, userID, platform string) (core.ChatConnector, error) {
	credential, err := f.resolve(ctx, userID, platform)
	if err != nil || credential == nil {
		return nil, err
	}

	connector, err := f.registry.CreateChat(platform, credential, f.config)
	if err != nil {
		return nil, err
	}

	if !f.verify(ctx, connector, userID) {
		return nil, nil
	}
	return connector, nil
}
