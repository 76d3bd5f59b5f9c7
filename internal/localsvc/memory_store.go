package localsvc

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	hit    Hit
	orgID  string
	groups []string
}

// MemoryStore implements an in-memory store
type MemoryStore struct {
	mu      sync.RWMutex
	records []memoryRecord
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add appends the batch's entries
func (s *MemoryStore) Add(_ context.Context, in AddInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	groups := append([]string(nil), in.Groups...)
	for _, e := range in.Entries {
		s.records = append(s.records, memoryRecord{
			hit: Hit{
				MemoryID:  in.MemoryID,
				Content:   e.Content,
				Source:    e.Source,
				MessageID: e.MessageID,
				Type:      e.Type,
				CreatedAt: now,
			},
			orgID:  in.OrgID,
			groups: groups,
		})
	}
	return nil
}

// Search ranks entries in the requested groups
func (s *MemoryStore) Search(_ context.Context, in SearchInput) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]struct{}, len(in.Groups))
	for _, g := range in.Groups {
		want[g] = struct{}{}
	}

	hits := make([]Hit, 0)
	for _, r := range s.records {
		if len(want) > 0 && !inAny(r.groups, want) {
			continue
		}
		hits = append(hits, r.hit)
	}
	return rank(hits, in.Query, in.MinScore), nil
}

// Delete removes entries stored under memoryID
func (s *MemoryStore) Delete(_ context.Context, memoryID, orgID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var removed int64
	for _, r := range s.records {
		if r.hit.MemoryID == memoryID && deletable(r.orgID, orgID) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return removed, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

func inAny(groups []string, want map[string]struct{}) bool {
	for _, g := range groups {
		if _, ok := want[g]; ok {
			return true
		}
	}
	return false
}
