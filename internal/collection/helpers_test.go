package collection

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/query"
	"github.com/roach88/mallstore/internal/store"
	"github.com/roach88/mallstore/internal/testutil"
	"github.com/roach88/mallstore/internal/views"
)

type fixture struct {
	m   *Mutator
	reg *views.MemoryRegistry
	db  *store.Store
}

// newFixture builds a mutator over a temp-dir SQLite store. wrap, when
// non-nil, decorates the gateway the mutator sees.
func newFixture(t *testing.T, wrap func(gateway.Gateway) gateway.Gateway) *fixture {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	graph, err := views.DefaultGraph()
	require.NoError(t, err)
	reg := views.NewMemoryRegistry()
	coord := views.NewCoordinator(graph, reg, testutil.DiscardLogger())

	var gw gateway.Gateway = db
	if wrap != nil {
		gw = wrap(db)
	}

	m := NewMutator(gw, coord,
		WithIDGenerator(testutil.NewSequentialIDs("entry")),
		WithClock(testutil.NewFixedClock()),
		WithLogger(testutil.DiscardLogger()),
	)
	return &fixture{m: m, reg: reg, db: db}
}

// warm marks keys fresh so tests can observe invalidation.
func (f *fixture) warm(t *testing.T, keys ...views.Key) {
	t.Helper()
	for _, k := range keys {
		gen, err := f.reg.Generation(context.Background(), k)
		require.NoError(t, err)
		require.NoError(t, f.reg.Put(context.Background(), k, "cached", gen))
	}
}

// staleSelects hides existing rows from the first n lookups, as if a
// concurrent add committed between this caller's read and its write.
type staleSelects struct {
	gateway.Gateway
	mu        sync.Mutex
	remaining int
}

func (g *staleSelects) Select(ctx context.Context, q query.Select) ([]gateway.Row, error) {
	g.mu.Lock()
	hide := g.remaining > 0
	if hide {
		g.remaining--
	}
	g.mu.Unlock()

	if hide {
		return []gateway.Row{}, nil
	}
	return g.Gateway.Select(ctx, q)
}

// casMisses makes the first n updates match nothing, as if another merge
// changed the quantity first.
type casMisses struct {
	gateway.Gateway
	mu        sync.Mutex
	remaining int
	updates   int
}

func (g *casMisses) Update(ctx context.Context, m query.Update) ([]gateway.Row, error) {
	g.mu.Lock()
	g.updates++
	miss := g.remaining > 0
	if miss {
		g.remaining--
	}
	g.mu.Unlock()

	if miss {
		return []gateway.Row{}, nil
	}
	return g.Gateway.Update(ctx, m)
}

// failingGateway fails every call with err.
type failingGateway struct {
	err error
}

func (g failingGateway) Select(context.Context, query.Select) ([]gateway.Row, error) {
	return nil, g.err
}
func (g failingGateway) Count(context.Context, query.Count) (int64, error) { return 0, g.err }
func (g failingGateway) Insert(context.Context, query.Insert) (gateway.Row, error) {
	return nil, g.err
}
func (g failingGateway) Update(context.Context, query.Update) ([]gateway.Row, error) {
	return nil, g.err
}
func (g failingGateway) Delete(context.Context, query.Delete) ([]gateway.Row, error) {
	return nil, g.err
}

// alwaysRacing reports one existing cart row on every lookup and matches
// nothing on every update, so each merge attempt loses. It never touches
// a store.
type alwaysRacing struct {
	failingGateway
	row gateway.Row
}

func (g alwaysRacing) Select(context.Context, query.Select) ([]gateway.Row, error) {
	return []gateway.Row{g.row}, nil
}

func (g alwaysRacing) Update(context.Context, query.Update) ([]gateway.Row, error) {
	return []gateway.Row{}, nil
}
