package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/mallstore/internal/query"
)

// createTestStore creates a new SQLite store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// cartRow builds an insert row for the carts table.
func cartRow(id, owner, item string, qty int) map[string]any {
	return map[string]any{
		"id":         id,
		"owner_id":   owner,
		"item_key":   item,
		"quantity":   qty,
		"actor":      owner,
		"action":     "added",
		"updated_at": testTime,
	}
}

// mustInsert inserts a row or fails the test.
func mustInsert(t *testing.T, s *Store, table string, row map[string]any) {
	t.Helper()
	if _, err := s.Insert(context.Background(), query.Insert{Into: table, Row: row}); err != nil {
		t.Fatalf("insert into %s failed: %v", table, err)
	}
}
