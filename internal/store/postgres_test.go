package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/query"
)

func newMockPostgres(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgres_SelectRebindsPlaceholders(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM wishlists WHERE owner_id = $1 AND item_key = $2 ORDER BY id COLLATE "C" ASC LIMIT 1`,
	)).
		WithArgs("u1", "sku-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "item_key"}).AddRow("e1", "u1", "sku-1"))

	rows, err := s.Select(context.Background(), query.Select{
		From:   "wishlists",
		Filter: query.AllOf(query.Eq("owner_id", "u1"), query.Eq("item_key", "sku-1")),
		Limit:  1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "e1", rows[0].String("id"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UniqueViolationMapped(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO wishlists (id, item_key, owner_id) VALUES ($1, $2, $3) RETURNING *`)).
		WithArgs("e2", "sku-1", "u1").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := s.Insert(context.Background(), query.Insert{
		Into: "wishlists",
		Row:  map[string]any{"id": "e2", "owner_id": "u1", "item_key": "sku-1"},
	})
	require.Error(t, err)
	assert.True(t, gateway.IsUniqueViolation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_OtherErrorsPassThrough(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM products WHERE status = $1`)).
		WithArgs("pending").
		WillReturnError(&pq.Error{Code: "42P01", Message: "relation does not exist"})

	_, err := s.Count(context.Background(), query.Count{From: "products", Filter: query.Eq("status", "pending")})
	require.Error(t, err)
	assert.False(t, gateway.IsUniqueViolation(err))
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestMapError_BadConnIsUnavailable(t *testing.T) {
	err := mapError(driver.ErrBadConn)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Nil(t, mapError(nil))
}

func TestPostgres_CountScansInteger(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM products WHERE status = $1`)).
		WithArgs("rejected").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	n, err := s.Count(context.Background(), query.Count{From: "products", Filter: query.Eq("status", "rejected")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
