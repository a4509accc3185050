// Package gateway defines the narrow contract the storefront core consumes
// from the remote relational store: filtered select, count, insert and
// scoped update/delete. Backends live in internal/store (database/sql) and
// internal/postgrest (HTTP).
package gateway

import (
	"context"
	"errors"

	"github.com/roach88/mallstore/internal/query"
)

// Gateway is the remote store as seen by the core. Implementations must be
// safe for concurrent use. The store is the only serialization point for
// conflicting writes.
type Gateway interface {
	// Select returns matching rows in the requested order. No rows is an
	// empty, non-nil slice.
	Select(ctx context.Context, q query.Select) ([]Row, error)

	// Count returns the number of matching rows.
	Count(ctx context.Context, q query.Count) (int64, error)

	// Insert adds one row and returns it as stored. A uniqueness violation
	// wraps ErrUniqueViolation.
	Insert(ctx context.Context, m query.Insert) (Row, error)

	// Update applies a scoped update and returns the affected rows.
	Update(ctx context.Context, m query.Update) ([]Row, error)

	// Delete applies a scoped delete and returns the removed rows.
	Delete(ctx context.Context, m query.Delete) ([]Row, error)
}

var (
	// ErrUniqueViolation is reported when a write violates a UNIQUE constraint.
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrUnavailable is reported when the store cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// IsUniqueViolation reports whether err wraps ErrUniqueViolation.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}
