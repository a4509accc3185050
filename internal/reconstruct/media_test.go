package reconstruct

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mallstore/internal/model"
	"github.com/roach88/mallstore/internal/query"
	"github.com/roach88/mallstore/internal/store"
	"github.com/roach88/mallstore/internal/testutil"
)

type fakeLookup struct {
	media map[string]model.Media
	fail  map[string]bool
	calls map[string]int
}

func (f *fakeLookup) FirstMedia(_ context.Context, variantID string) (model.Media, bool, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[variantID]++
	if f.fail[variantID] {
		return model.Media{}, false, errors.New("lookup timed out")
	}
	m, ok := f.media[variantID]
	return m, ok, nil
}

func TestEnrichWithMedia(t *testing.T) {
	lookup := &fakeLookup{
		media: map[string]model.Media{"v1": {ID: "m1", VariantID: "v1", URL: "https://cdn/v1.jpg"}},
		fail:  map[string]bool{"v3": true},
	}
	log, hook := testutil.CapturingLogger()

	in := []model.OrderLine{
		{ID: "1", VariantID: "v1"},
		{ID: "2", VariantID: "v2"},
		{ID: "3", VariantID: "v3"},
		{ID: "4", VariantID: "v1"},
	}
	out := EnrichWithMedia(context.Background(), lookup, in, log)

	require.Len(t, out, 4)
	assert.Equal(t, []string{"1", "2", "3", "4"}, []string{out[0].ID, out[1].ID, out[2].ID, out[3].ID})

	assert.Equal(t, []model.Media{{ID: "m1", VariantID: "v1", URL: "https://cdn/v1.jpg"}}, out[0].Media)
	assert.NotNil(t, out[1].Media)
	assert.Empty(t, out[1].Media)
	assert.NotNil(t, out[2].Media)
	assert.Empty(t, out[2].Media)
	assert.Len(t, out[3].Media, 1)

	assert.Equal(t, 1, lookup.calls["v1"], "one lookup per distinct variant")
	assert.Nil(t, in[0].Media, "input not mutated")

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "v3", hook.LastEntry().Data["variant"])
}

func TestGatewayMediaLookup(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	insert := func(table string, row map[string]any) {
		t.Helper()
		_, err := db.Insert(ctx, query.Insert{Into: table, Row: row})
		require.NoError(t, err)
	}
	insert("products", map[string]any{"id": "p1", "name": "Lamp", "status": "approved"})
	insert("product_variants", map[string]any{"id": "v1", "product_id": "p1", "status": "approved"})
	insert("product_variants", map[string]any{"id": "v2", "product_id": "p1", "status": "approved"})
	insert("product_media", map[string]any{"id": "m2", "variant_id": "v1", "url": "b.jpg", "position": 2})
	insert("product_media", map[string]any{"id": "m1", "variant_id": "v1", "url": "a.jpg", "position": 1})

	lookup := NewGatewayMediaLookup(db)

	m, ok, err := lookup.FirstMedia(ctx, "v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.Media{ID: "m1", VariantID: "v1", URL: "a.jpg", Kind: "image"}, m)

	_, ok, err = lookup.FirstMedia(ctx, "v2")
	require.NoError(t, err)
	assert.False(t, ok)
}
