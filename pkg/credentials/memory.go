package credentials

import (
	"context"
	"sync"

	"github.com/genialabs/conduit/pkg/connector/core"
)

// MemoryStore is an in-process credential store used in tests and single
// node deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]*core.Credential
}

// NewMemoryStore creates an empty in-memory credential store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds: make(map[string]*core.Credential),
	}
}

func memoryKey(userID, platform string) string {
	return userID + "\x00" + platform
}

// Get returns the credential for one user on one platform, or ErrNotFound
func (s *MemoryStore) Get(ctx context.Context, userID, platform string) (*core.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	credential, ok := s.creds[memoryKey(userID, platform)]
	if !ok {
		return nil, ErrNotFound
	}

	// Copy so callers cannot mutate the stored record
	out := *credential
	return &out, nil
}

// Put stores or replaces a credential
func (s *MemoryStore) Put(ctx context.Context, credential *core.Credential) error {
	if err := validate(credential); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *credential
	s.creds[memoryKey(credential.UserID, credential.Platform)] = &stored
	return nil
}

// Delete removes a credential
func (s *MemoryStore) Delete(ctx context.Context, userID, platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.creds, memoryKey(userID, platform))
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() {}
