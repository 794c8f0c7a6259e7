// Package registry manages platform adapter registration and instantiation
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/genialabs/conduit/pkg/config"
	"github.com/genialabs/conduit/pkg/connector/core"
	"github.com/genialabs/conduit/pkg/errors"
	"github.com/genialabs/conduit/pkg/logger"
)

// SocialFactory creates a social adapter bound to one credential.
type SocialFactory func(credential *core.Credential, cfg *config.Config) (core.SocialConnector, error)

// EmailFactory creates an email adapter bound to one credential.
type EmailFactory func(credential *core.Credential, cfg *config.Config) (core.EmailConnector, error)

// ImageFactory creates an image generation adapter bound to one credential.
type ImageFactory func(credential *core.Credential, cfg *config.Config) (core.ImageConnector, error)

// ChatFactory creates a chat adapter bound to one credential.
type ChatFactory func(credential *core.Credential, cfg *config.Config) (core.ChatConnector, error)

// Registry maps platform identifiers to adapter factories. Adapter packages
// register themselves from init so behavior is selected once at
// construction time instead of re-branching on the platform per call.
type Registry struct {
	social map[string]SocialFactory
	email  map[string]EmailFactory
	image  map[string]ImageFactory
	chat   map[string]ChatFactory
	mu     sync.RWMutex
	logger *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new adapter registry
func NewRegistry() *Registry {
	return &Registry{
		social: make(map[string]SocialFactory),
		email:  make(map[string]EmailFactory),
		image:  make(map[string]ImageFactory),
		chat:   make(map[string]ChatFactory),
		logger: logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// RegisterSocial registers a social adapter factory
func (r *Registry) RegisterSocial(platform string, factory SocialFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.social[platform]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("social adapter %s already registered", platform))
	}

	r.social[platform] = factory
	r.logger.Info("social adapter registered", zap.String("platform", platform))
	return nil
}

// RegisterEmail registers an email adapter factory
func (r *Registry) RegisterEmail(platform string, factory EmailFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.email[platform]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("email adapter %s already registered", platform))
	}

	r.email[platform] = factory
	r.logger.Info("email adapter registered", zap.String("platform", platform))
	return nil
}

// RegisterImage registers an image adapter factory
func (r *Registry) RegisterImage(platform string, factory ImageFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.image[platform]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("image adapter %s already registered", platform))
	}

	r.image[platform] = factory
	r.logger.Info("image adapter registered", zap.String("platform", platform))
	return nil
}

// RegisterChat registers a chat adapter factory
func (r *Registry) RegisterChat(platform string, factory ChatFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.chat[platform]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("chat adapter %s already registered", platform))
	}

	r.chat[platform] = factory
	r.logger.Info("chat adapter registered", zap.String("platform", platform))
	return nil
}

// CreateSocial creates a social adapter instance
func (r *Registry) CreateSocial(platform string, credential *core.Credential, cfg *config.Config) (core.SocialConnector, error) {
	r.mu.RLock()
	factory, exists := r.social[platform]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("social adapter %s not found", platform))
	}

	connector, err := factory(credential, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create social adapter %s", platform))
	}

	return connector, nil
}

// CreateEmail creates an email adapter instance
func (r *Registry) CreateEmail(platform string, credential *core.Credential, cfg *config.Config) (core.EmailConnector, error) {
	r.mu.RLock()
	factory, exists := r.email[platform]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("email adapter %s not found", platform))
	}

	connector, err := factory(credential, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create email adapter %s", platform))
	}

	return connector, nil
}

// CreateImage creates an image adapter instance
func (r *Registry) CreateImage(platform string, credential *core.Credential, cfg *config.Config) (core.ImageConnector, error) {
	r.mu.RLock()
	factory, exists := r.image[platform]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("image adapter %s not found", platform))
	}

	connector, err := factory(credential, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create image adapter %s", platform))
	}

	return connector, nil
}

// CreateChat creates a chat adapter instance
func (r *Registry) CreateChat(platform string, credential *core.Credential, cfg *config.Config) (core.ChatConnector, error) {
	r.mu.RLock()
	factory, exists := r.chat[platform]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("chat adapter %s not found", platform))
	}

	connector, err := factory(credential, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create chat adapter %s", platform))
	}

	return connector, nil
}

// Platforms returns the registered platforms per family, sorted
func (r *Registry) Platforms() map[core.Family][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[core.Family][]string, 4)
	for name := range r.social {
		out[core.FamilySocial] = append(out[core.FamilySocial], name)
	}
	for name := range r.email {
		out[core.FamilyEmail] = append(out[core.FamilyEmail], name)
	}
	for name := range r.image {
		out[core.FamilyImage] = append(out[core.FamilyImage], name)
	}
	for name := range r.chat {
		out[core.FamilyChat] = append(out[core.FamilyChat], name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}

// HasSocial checks if a social adapter is registered
func (r *Registry) HasSocial(platform string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.social[platform]
	return exists
}

// HasEmail checks if an email adapter is registered
func (r *Registry) HasEmail(platform string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.email[platform]
	return exists
}

// Clear removes all registered adapters (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.social = make(map[string]SocialFactory)
	r.email = make(map[string]EmailFactory)
	r.image = make(map[string]ImageFactory)
	r.chat = make(map[string]ChatFactory)
}

// Global registry functions

// RegisterSocial registers a social adapter in the global registry
func RegisterSocial(platform string, factory SocialFactory) error {
	return globalRegistry.RegisterSocial(platform, factory)
}

// RegisterEmail registers an email adapter in the global registry
func RegisterEmail(platform string, factory EmailFactory) error {
	return globalRegistry.RegisterEmail(platform, factory)
}

// RegisterImage registers an image adapter in the global registry
func RegisterImage(platform string, factory ImageFactory) error {
	return globalRegistry.RegisterImage(platform, factory)
}

// RegisterChat registers a chat adapter in the global registry
func RegisterChat(platform string, factory ChatFactory) error {
	return globalRegistry.RegisterChat(platform, factory)
}

// CreateSocial creates a social adapter from the global registry
func CreateSocial(platform string, credential *core.Credential, cfg *config.Config) (core.SocialConnector, error) {
	return globalRegistry.CreateSocial(platform, credential, cfg)
}

// CreateEmail creates an email adapter from the global registry
func CreateEmail(platform string, credential *core.Credential, cfg *config.Config) (core.EmailConnector, error) {
	return globalRegistry.CreateEmail(platform, credential, cfg)
}

// CreateImage creates an image adapter from the global registry
func CreateImage(platform string, credential *core.Credential, cfg *config.Config) (core.ImageConnector, error) {
	return globalRegistry.CreateImage(platform, credential, cfg)
}

// CreateChat creates a chat adapter from the global registry
func CreateChat(platform string, credential *core.Credential, cfg *config.Config) (core.ChatConnector, error) {
	return globalRegistry.CreateChat(platform, credential, cfg)
}

// Platforms returns registered platforms from the global registry
func Platforms() map[core.Family][]string {
	return globalRegistry.Platforms()
}

// GetRegistry returns the global registry instance
func GetRegistry() *Registry {
	return globalRegistry
}
