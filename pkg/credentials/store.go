// Package credentials resolves per-user platform secrets for the connector
// factory. The factory never constructs an adapter without a stored
// credential, and a missing credential is an expected outcome, not an error.
package credentials

import (
	"context"
	"errors"

	"github.com/genialabs/conduit/pkg/connector/core"
)

// ErrNotFound reports that no credential exists for the (user, platform) pair
var ErrNotFound = errors.New("credential not found")

// Store resolves credentials by user and platform.
type Store interface {
	// Get returns the credential for one user on one platform, or ErrNotFound
	Get(ctx context.Context, userID, platform string) (*core.Credential, error)

	// Put stores or replaces a credential
	Put(ctx context.Context, credential *core.Credential) error

	// Delete removes a credential; deleting an absent credential is a no-op
	Delete(ctx context.Context, userID, platform string) error

	// Close releases store resources
	Close()
}

// validate rejects credentials that could never authenticate
func validate(credential *core.Credential) error {
	if credential == nil {
		return errors.New("credential is nil")
	}
	if credential.UserID == "" {
		return errors.New("credential user_id is empty")
	}
	if credential.Platform == "" {
		return errors.New("credential platform is empty")
	}
	if credential.Token() == "" {
		return errors.New("credential carries no secret")
	}
	return nil
}
