// Package store provides session token revocation lists.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/onchain-guard/gatekeeper/ports"
)

// MemoryStore is an in-memory revocation list. Expired entries are swept
// lazily on Revoke and ignored on read.
type MemoryStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewMemoryStore creates a new in-memory revocation list.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		revoked: make(map[string]time.Time),
	}
}

// Revoke records tokenID as revoked for the given duration.
func (s *MemoryStore) Revoke(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[tokenID] = now.Add(expiry)

	return nil
}

// IsRevoked reports whether tokenID is currently revoked.
func (s *MemoryStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	return time.Now().Before(exp), nil
}

var _ ports.RevocationList = (*MemoryStore)(nil)
