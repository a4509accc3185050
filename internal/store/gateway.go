package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/query"
)

var _ gateway.Gateway = (*Store)(nil)

// Select returns matching rows. Returns an empty slice (not nil) when
// nothing matches.
func (s *Store) Select(ctx context.Context, q query.Select) ([]gateway.Row, error) {
	sql, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.From, err)
	}

	rows, err := s.queryRows(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.From, err)
	}
	return rows, nil
}

// Count returns the number of matching rows.
func (s *Store) Count(ctx context.Context, q query.Count) (int64, error) {
	sql, params, err := s.compiler.Compile(q)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.From, err)
	}

	var n int64
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(sql), params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.From, mapError(err))
	}
	return n, nil
}

// Insert adds one row and returns it as stored.
// A UNIQUE violation wraps gateway.ErrUniqueViolation.
func (s *Store) Insert(ctx context.Context, m query.Insert) (gateway.Row, error) {
	sql, params, err := s.compiler.Compile(m)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", m.Into, err)
	}

	rows, err := s.queryRows(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", m.Into, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s: no row returned", m.Into)
	}
	return rows[0], nil
}

// Update applies a scoped update and returns the affected rows.
func (s *Store) Update(ctx context.Context, m query.Update) ([]gateway.Row, error) {
	sql, params, err := s.compiler.Compile(m)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", m.Table, err)
	}

	rows, err := s.queryRows(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", m.Table, err)
	}
	return rows, nil
}

// Delete applies a scoped delete and returns the removed rows.
func (s *Store) Delete(ctx context.Context, m query.Delete) ([]gateway.Row, error) {
	sql, params, err := s.compiler.Compile(m)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", m.From, err)
	}

	rows, err := s.queryRows(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", m.From, err)
	}
	return rows, nil
}

// queryRows runs a statement that yields rows (SELECT or ... RETURNING *).
func (s *Store) queryRows(ctx context.Context, sql string, params []any) ([]gateway.Row, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(sql), params...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func scanRows(rows *sqlx.Rows) ([]gateway.Row, error) {
	result := []gateway.Row{}
	for rows.Next() {
		m := make(map[string]any)
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result = append(result, gateway.Row(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}
