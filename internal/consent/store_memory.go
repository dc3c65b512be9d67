package consent

import (
	"context"
	"sync"
	"time"

	"placet/pkg/platform/sentinel"
)

// InMemoryStore keeps consent records in a token-indexed map guarded by a
// single mutex. Records are stored and returned by value, so readers can
// never observe a partially applied write.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Token] = record
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, token string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[token]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *InMemoryStore) UpdateSignedHash(_ context.Context, token, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[token]
	if !ok {
		return sentinel.ErrNotFound
	}
	if record.SignedHash != "" && record.SignedHash != hash {
		return sentinel.ErrConflict
	}
	record.SignedHash = hash
	s.records[token] = record
	return nil
}

func (s *InMemoryStore) Cleanup(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for token, record := range s.records {
		if record.Expired(now) {
			delete(s.records, token)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	stats := Stats{Total: len(s.records)}
	for _, record := range s.records {
		if record.Expired(now) {
			stats.Expired++
		} else {
			stats.Active++
		}
	}
	return stats, nil
}
