package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/yanqian/ai-travel-planner/internal/domain/planner"
)

// MemoryStore keeps sessions in process memory with per-entry expiry.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore constructs a store that purges expired sessions every cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get implements planner.SessionStore.
func (s *MemoryStore) Get(_ context.Context, id string) (*planner.Session, bool, error) {
	raw, ok := s.cache.Get(id)
	if !ok {
		return nil, false, nil
	}
	var session planner.Session
	if err := json.Unmarshal(raw.([]byte), &session); err != nil {
		return nil, false, fmt.Errorf("decode session: %w", err)
	}
	return &session, true, nil
}

// Save implements planner.SessionStore. Sessions are stored encoded so callers never
// share slices with the cache.
func (s *MemoryStore) Save(_ context.Context, session *planner.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.cache.Set(session.ID, payload, ttl)
	return nil
}

var _ planner.SessionStore = (*MemoryStore)(nil)
