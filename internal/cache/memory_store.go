package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-process Store used in tests and as the fallback when
// no Redis address is configured, matching the rest of the module's
// nil-dependency-falls-back-to-memory convention.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]entry)}
}

func (s *MemoryStore) PutMeta(_ context.Context, prefix, resultsID string, meta Meta, ttl time.Duration) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	s.put(metaKey(prefix, resultsID), data, ttl)
	return nil
}

func (s *MemoryStore) GetMeta(_ context.Context, prefix, resultsID string) (Meta, bool, error) {
	data, ok := s.get(metaKey(prefix, resultsID))
	if !ok {
		return Meta{}, false, nil
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, false, err
	}
	return meta, true, nil
}

func (s *MemoryStore) PutChunk(_ context.Context, prefix, resultsID string, k int, results json.RawMessage, ttl time.Duration) error {
	buf := make([]byte, len(results))
	copy(buf, results)
	s.put(chunkKey(prefix, resultsID, k), buf, ttl)
	return nil
}

func (s *MemoryStore) GetChunk(_ context.Context, prefix, resultsID string, k int) (json.RawMessage, bool, error) {
	data, ok := s.get(chunkKey(prefix, resultsID, k))
	if !ok {
		return nil, false, nil
	}
	return json.RawMessage(data), true, nil
}

func (s *MemoryStore) Invalidate(_ context.Context, prefix, resultsID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := prefix + ":" + resultsID + ":"
	for k := range s.data {
		if len(k) >= len(needle) && k[:len(needle)] == needle {
			delete(s.data, k)
		}
	}
	return nil
}

func (s *MemoryStore) put(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	s.data[key] = entry{value: value, expiresAt: expiresAt}
}

func (s *MemoryStore) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		delete(s.data, key)
		return nil, false
	}
	return e.value, true
}
