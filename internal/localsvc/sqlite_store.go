package localsvc

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists entries in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memory_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		memory_id TEXT NOT NULL,
		org_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		source TEXT,
		message_id TEXT,
		type TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_memory_entries_memory_id ON memory_entries(memory_id);

	CREATE TABLE IF NOT EXISTS memory_groups (
		entry_id TEXT NOT NULL,
		group_name TEXT NOT NULL,
		PRIMARY KEY (entry_id, group_name)
	);

	CREATE INDEX IF NOT EXISTS idx_memory_groups_group ON memory_groups(group_name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Add inserts the batch in one transaction
func (s *SQLiteStore) Add(ctx context.Context, in AddInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for _, e := range in.Entries {
		id := uuid.New().String()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO memory_entries (id, memory_id, org_id, content, source, message_id, type, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, in.MemoryID, in.OrgID, e.Content, e.Source, e.MessageID, e.Type, now); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}

		for _, g := range in.Groups {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO memory_groups (entry_id, group_name) VALUES (?, ?)`, id, g); err != nil {
				return fmt.Errorf("failed to insert group: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Search ranks entries in the requested groups
func (s *SQLiteStore) Search(ctx context.Context, in SearchInput) ([]Hit, error) {
	query := `
		SELECT e.memory_id, e.content, e.source, e.message_id, e.type, e.created_at
		FROM memory_entries e
		ORDER BY e.seq ASC`
	var args []interface{}

	if len(in.Groups) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(in.Groups)), ",")
		query = `
		SELECT e.memory_id, e.content, e.source, e.message_id, e.type, e.created_at
		FROM memory_entries e
		WHERE e.id IN (SELECT entry_id FROM memory_groups WHERE group_name IN (` + placeholders + `))
		ORDER BY e.seq ASC`
		for _, g := range in.Groups {
			args = append(args, g)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]Hit, 0)
	for rows.Next() {
		var h Hit
		var source, messageID, typ sql.NullString
		if err := rows.Scan(&h.MemoryID, &h.Content, &source, &messageID, &typ, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Source, h.MessageID, h.Type = source.String, messageID.String, typ.String
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rank(hits, in.Query, in.MinScore), nil
}

// Delete removes entries stored under memoryID
func (s *SQLiteStore) Delete(ctx context.Context, memoryID, orgID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const match = `memory_id = ? AND (org_id = '' OR org_id = ?)`
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM memory_groups WHERE entry_id IN (SELECT id FROM memory_entries WHERE `+match+`)`,
		memoryID, orgID); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM memory_entries WHERE `+match, memoryID, orgID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return n, tx.Commit()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
