// Package store implements the remote store gateway over database/sql.
//
// The same Store serves SQLite (go-sqlite3, the default for local use and
// tests) and Postgres (lib/pq). Queries arrive as query IR, are compiled by
// querysql and rebound to the driver's placeholder style by sqlx.
//
// # Critical patterns
//
// Uniqueness is the store's job:
//   - UNIQUE(owner_id, item_key) on carts and wishlists
//   - violations surface as gateway.ErrUniqueViolation so the collection
//     mutator can retry the write as a merge
//
// Deterministic reads:
//   - every SELECT carries an id tiebreaker in its ORDER BY
//
// Scoped writes:
//   - UPDATE and DELETE without a filter are rejected before reaching SQL
//
// # SQLite configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//   - a single open connection (SQLite has one writer)
package store
