package jwt

import (
	"context"
	"sync"
	"time"
)

// Store is the revocation list. Implementations keep an entry until the
// token's natural expiry; lookups happen on every authenticated call.
type Store interface {
	// Revoke marks a token ID as revoked for the given duration.
	Revoke(ctx context.Context, tokenID string, expiration time.Duration) error

	// IsRevoked checks whether a token ID has been revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// Close releases any resources used by the store.
	Close() error
}

// MemoryStore is an in-memory Store suitable for single-instance
// deployments and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time // token ID -> revocation entry expiry

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// MemoryStoreOption is a functional option for MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets the interval for purging expired entries.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) { s.cleanupInterval = d }
}

// NewMemoryStore creates a new in-memory revocation store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		tokens:          make(map[string]time.Time),
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.cleanup()

	return s
}

// Revoke marks a token ID as revoked.
func (s *MemoryStore) Revoke(ctx context.Context, tokenID string, expiration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[tokenID] = time.Now().Add(expiration)
	return nil
}

// IsRevoked checks whether a token ID has been revoked.
func (s *MemoryStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, exists := s.tokens[tokenID]
	if !exists || time.Now().After(exp) {
		return false, nil
	}
	return true, nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
	return nil
}

// Size returns the number of revocation entries.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for id, exp := range s.tokens {
				if now.After(exp) {
					delete(s.tokens, id)
				}
			}
			s.mu.Unlock()
		case <-s.stopCleanup:
			return
		}
	}
}
