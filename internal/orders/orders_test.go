package orders

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mallstore/internal/model"
	"github.com/roach88/mallstore/internal/query"
	"github.com/roach88/mallstore/internal/store"
	"github.com/roach88/mallstore/internal/testutil"
	"github.com/roach88/mallstore/internal/views"
)

func newTestService(t *testing.T) (*Service, *store.Store, *views.MemoryRegistry) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	graph, err := views.DefaultGraph()
	require.NoError(t, err)
	reg := views.NewMemoryRegistry()
	coord := views.NewCoordinator(graph, reg, testutil.DiscardLogger())

	return NewService(db, coord, testutil.DiscardLogger()), db, reg
}

// warm caches a placeholder under key so tests can observe invalidation.
func warm(t *testing.T, reg *views.MemoryRegistry, key views.Key) {
	t.Helper()
	gen, err := reg.Generation(context.Background(), key)
	require.NoError(t, err)
	require.NoError(t, reg.Put(context.Background(), key, "cached", gen))
}

func insertLine(t *testing.T, db *store.Store, id, orderNo, status, customer, variant string, day int) {
	t.Helper()
	_, err := db.Insert(context.Background(), query.Insert{Into: "orders", Row: map[string]any{
		"id":            id,
		"order_no":      orderNo,
		"order_date":    time.Date(2025, 3, day, 10, 0, 0, 0, time.UTC),
		"status":        status,
		"variant_id":    variant,
		"customer_id":   customer,
		"customer_name": "Customer " + customer,
		"quantity":      1,
	}})
	require.NoError(t, err)
}

func seedMedia(t *testing.T, db *store.Store) {
	t.Helper()
	ctx := context.Background()
	for _, ins := range []query.Insert{
		{Into: "products", Row: map[string]any{"id": "p1", "name": "Lamp", "status": "approved"}},
		{Into: "product_variants", Row: map[string]any{"id": "v1", "product_id": "p1", "status": "approved"}},
		{Into: "product_media", Row: map[string]any{"id": "m1", "variant_id": "v1", "url": "lamp.jpg"}},
	} {
		_, err := db.Insert(ctx, ins)
		require.NoError(t, err)
	}
}

func TestListGrouped(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedMedia(t, db)

	insertLine(t, db, "l1", "A", model.StatusPaid, "c1", "v1", 2)
	insertLine(t, db, "l2", "A", model.StatusPaid, "c1", "v9", 2)
	insertLine(t, db, "l3", "B", model.StatusPending, "c2", "v1", 5)

	orders, err := svc.ListGrouped(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	// Newest first.
	assert.Equal(t, "B", orders[0].OrderNo)
	assert.Len(t, orders[0].Lines, 1)
	assert.Equal(t, "A", orders[1].OrderNo)
	assert.Len(t, orders[1].Lines, 2)
	assert.Equal(t, model.StatusPaid, orders[1].Status)
	assert.Equal(t, "Customer c1", orders[1].Customer.Name)

	assert.Equal(t, "lamp.jpg", orders[1].Lines[0].Media[0].URL)
	assert.NotNil(t, orders[1].Lines[1].Media)
	assert.Empty(t, orders[1].Lines[1].Media)
}

func TestListGrouped_ByCustomer(t *testing.T) {
	svc, db, _ := newTestService(t)
	insertLine(t, db, "l1", "A", model.StatusPaid, "c1", "v1", 2)
	insertLine(t, db, "l2", "B", model.StatusPaid, "c2", "v1", 3)

	orders, err := svc.ListGrouped(context.Background(), Filter{CustomerID: "c2"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "B", orders[0].OrderNo)
}

func TestUpdateStatus_AllLinesOfOrder(t *testing.T) {
	svc, db, reg := newTestService(t)
	ctx := context.Background()
	insertLine(t, db, "l1", "A", model.StatusPending, "c1", "v1", 2)
	insertLine(t, db, "l2", "A", model.StatusPending, "c1", "v2", 2)
	insertLine(t, db, "l3", "B", model.StatusPending, "c2", "v1", 2)

	for _, k := range []views.Key{views.OrdersKey, views.OrdersForKey("c1"), views.OrdersForKey("c2"), views.ApprovalStatsKey} {
		warm(t, reg, k)
	}

	n, err := svc.UpdateStatus(ctx, "A", "Shipped")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	orders, err := svc.ListGrouped(ctx, Filter{})
	require.NoError(t, err)
	for _, o := range orders {
		want := model.StatusPending
		if o.OrderNo == "A" {
			want = model.StatusShipped
		}
		for _, l := range o.Lines {
			assert.Equal(t, want, l.Status, "order %s line %s", o.OrderNo, l.ID)
		}
	}

	assert.True(t, reg.IsStale(ctx, views.OrdersKey))
	assert.True(t, reg.IsStale(ctx, views.OrdersForKey("c1")))
	assert.False(t, reg.IsStale(ctx, views.OrdersForKey("c2")), "B belongs to another customer")
	assert.False(t, reg.IsStale(ctx, views.ApprovalStatsKey), "status does not feed approval stats")
}

func TestUpdateStatus_Errors(t *testing.T) {
	svc, db, reg := newTestService(t)
	ctx := context.Background()
	insertLine(t, db, "l1", "A", model.StatusPending, "c1", "v1", 2)
	warm(t, reg, views.OrdersKey)

	_, err := svc.UpdateStatus(ctx, "A", "lost")
	assert.True(t, model.IsValidation(err))

	_, err = svc.UpdateStatus(ctx, "", model.StatusPaid)
	assert.True(t, model.IsValidation(err))

	_, err = svc.UpdateStatus(ctx, "Z", model.StatusPaid)
	assert.True(t, model.IsNotFound(err))

	assert.False(t, reg.IsStale(ctx, views.OrdersKey), "failed updates leave views fresh")
}
