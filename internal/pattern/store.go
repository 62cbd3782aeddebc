package pattern

import (
	"context"
	"sync"
	"time"
)

// Entry is one cached base-URL → listing-suffix association.
type Entry struct {
	BaseURL   string
	Suffix    string
	CheckedAt time.Time
}

// Store persists detected listing suffixes. Implementations only need
// last-write-wins semantics; the detector re-verifies entries on read.
type Store interface {
	Get(ctx context.Context, baseURL string) (suffix string, ok bool, err error)
	Put(ctx context.Context, baseURL, suffix string) error
	Delete(ctx context.Context, baseURL string) error
	All(ctx context.Context) ([]Entry, error)
}

// MemoryStore is the in-process Store, used in tests and one-shot runs
// that don't want persistence.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, baseURL string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[baseURL]
	return e.Suffix, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, baseURL, suffix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[baseURL] = Entry{BaseURL: baseURL, Suffix: suffix, CheckedAt: time.Now().UTC()}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, baseURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, baseURL)
	return nil
}

func (s *MemoryStore) All(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.m))
	for _, e := range s.m {
		out = append(out, e)
	}
	return out, nil
}
