package approval

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/model"
	"github.com/roach88/mallstore/internal/query"
	"github.com/roach88/mallstore/internal/store"
)

// countingGateway answers Count from a table keyed by the filter it sees.
type countingGateway struct {
	gateway.Gateway
	mu     sync.Mutex
	counts map[string]int64
	fail   string
}

func (g *countingGateway) Count(_ context.Context, q query.Count) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := "variants"
	if eq, ok := q.Filter.(query.Equals); ok {
		key = eq.Value.(string)
	}
	if key == g.fail {
		return 0, errors.New("count timed out")
	}
	return g.counts[key], nil
}

func TestComputeApprovalStats_SumsCategories(t *testing.T) {
	gw := &countingGateway{counts: map[string]int64{
		model.ReviewPending:  3,
		model.ReviewRejected: 2,
		"variants":           1,
	}}

	s, err := NewAggregator(gw).ComputeApprovalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalSummary{Pending: 3, Rejected: 2, VariantApprovals: 1, Total: 6}, s)
}

func TestComputeApprovalStats_AnyFailureFails(t *testing.T) {
	gw := &countingGateway{counts: map[string]int64{}, fail: model.ReviewRejected}

	_, err := NewAggregator(gw).ComputeApprovalStats(context.Background())
	require.Error(t, err)
	assert.True(t, model.IsRemoteFailure(err))
}

func TestComputeApprovalStats_AgainstStore(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	rows := []query.Insert{
		{Into: "products", Row: map[string]any{"id": "p1", "name": "a", "status": "pending"}},
		{Into: "products", Row: map[string]any{"id": "p2", "name": "b", "status": "pending"}},
		{Into: "products", Row: map[string]any{"id": "p3", "name": "c", "status": "pending"}},
		{Into: "products", Row: map[string]any{"id": "p4", "name": "d", "status": "rejected"}},
		{Into: "products", Row: map[string]any{"id": "p5", "name": "e", "status": "rejected"}},
		{Into: "products", Row: map[string]any{"id": "p6", "name": "f", "status": "approved"}},
		{Into: "products", Row: map[string]any{"id": "p7", "name": "g", "status": "approved"}},
		{Into: "product_variants", Row: map[string]any{"id": "v1", "product_id": "p6", "status": "pending"}},
		{Into: "product_variants", Row: map[string]any{"id": "v2", "product_id": "p6", "status": "rejected"}},
		{Into: "product_variants", Row: map[string]any{"id": "v3", "product_id": "p7", "status": "approved"}},
		// Variants of unapproved products are covered by the product count.
		{Into: "product_variants", Row: map[string]any{"id": "v4", "product_id": "p1", "status": "pending"}},
	}
	for _, ins := range rows {
		_, err := db.Insert(ctx, ins)
		require.NoError(t, err)
	}

	s, err := NewAggregator(db).ComputeApprovalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalSummary{Pending: 3, Rejected: 2, VariantApprovals: 1, Total: 6}, s)
}
