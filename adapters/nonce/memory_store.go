package nonce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/onchain-guard/gatekeeper/ports"
)

// MemoryStore is an in-memory nonce store for single-instance deployments
// and tests. Expired entries are swept lazily on Issue.
type MemoryStore struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	expires map[string]time.Time
}

// NewMemoryStore creates an in-memory nonce store. A ttl of zero selects
// DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		expires: make(map[string]time.Time),
	}
}

// Issue generates and records a fresh nonce.
func (s *MemoryStore) Issue(ctx context.Context) (string, error) {
	value, err := newValue()
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for v, exp := range s.expires {
		if now.After(exp) {
			delete(s.expires, v)
		}
	}
	s.expires[value] = now.Add(s.ttl)

	return value, nil
}

// Consume marks value as used. Exactly one concurrent caller for a given
// value observes true; an expired entry is evicted and reported unknown.
func (s *MemoryStore) Consume(ctx context.Context, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expires[value]
	if !ok {
		return false, nil
	}
	delete(s.expires, value)

	if s.now().After(exp) {
		return false, nil
	}
	return true, nil
}

var _ ports.NonceStore = (*MemoryStore)(nil)
