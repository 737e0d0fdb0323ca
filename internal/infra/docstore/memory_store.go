package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/ai-travel-planner/internal/domain/planner"
)

// MemoryStore keeps rendered documents in memory until they expire.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]storedDocument
	now  func() time.Time
}

type storedDocument struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]storedDocument), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, ttl time.Duration) error {
	doc := storedDocument{data: append([]byte(nil), data...)}
	if ttl > 0 {
		doc.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.docs[key] = doc
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	doc, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok || doc.expired(s.now()) {
		return nil, false, nil
	}
	// Callers own the returned slice.
	return append([]byte(nil), doc.data...), true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.docs, key)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired documents and reports how many were removed.
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, doc := range s.docs {
		if doc.expired(now) {
			delete(s.docs, key)
			removed++
		}
	}
	return removed, nil
}

func (d storedDocument) expired(now time.Time) bool {
	return !d.expiresAt.IsZero() && !now.Before(d.expiresAt)
}

var _ planner.DocumentStore = (*MemoryStore)(nil)
