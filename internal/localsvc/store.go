// Package localsvc emulates the hosted context-memory service for local
// development and tests. It serves the same routes as the remote service
// and keeps entries in memory or in a SQLite file.
package localsvc

import (
	"context"
	"fmt"
	"time"
)

// Entry is one piece of content submitted in an add batch.
type Entry struct {
	Content   string
	Source    string
	MessageID string
	Type      string
}

// AddInput is a batch of entries stored under one memory id.
type AddInput struct {
	MemoryID string
	// OrgID scopes the entries for deletion. Empty means any org may delete.
	OrgID   string
	Groups  []string
	Entries []Entry
}

// SearchInput selects and ranks entries.
type SearchInput struct {
	Query    string
	Groups   []string // entries sharing any group match; empty matches all
	MinScore float64
}

// Hit is a ranked search result.
type Hit struct {
	MemoryID  string
	Content   string
	Source    string
	MessageID string
	Type      string
	Score     float64
	CreatedAt time.Time
}

// Store defines the interface for local storage backends
type Store interface {
	Add(ctx context.Context, in AddInput) error
	// Search returns hits ordered by score, then insertion.
	Search(ctx context.Context, in SearchInput) ([]Hit, error)
	// Delete removes entries stored under memoryID that orgID may delete and
	// reports how many were removed.
	Delete(ctx context.Context, memoryID, orgID string) (int64, error)
	Close() error
}

// NewStore opens the backend named by driver.
func NewStore(driver, path string) (Store, error) {
	switch driver {
	case "memory", "":
		return NewMemoryStore(), nil
	case "sqlite":
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

// deletable reports whether orgID may delete an entry owned by owner.
func deletable(owner, orgID string) bool {
	return owner == "" || owner == orgID
}
