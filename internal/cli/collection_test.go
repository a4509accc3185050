package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mallstore/internal/identity"
	"github.com/roach88/mallstore/internal/model"
)

type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// executeJSON runs args with --format json and decodes the response.
func executeJSON(t *testing.T, args ...string) (jsonResponse, error) {
	t.Helper()
	out, err := execute(t, append([]string{"--format", "json"}, args...)...)
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

func decodeData[T any](t *testing.T, resp jsonResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

func TestCart_AddMergeCountList(t *testing.T) {
	useTempStore(t)

	resp, err := executeJSON(t, "--as", "alice", "cart", "add", "sku-1", "-q", "2")
	require.NoError(t, err)
	first := decodeData[model.Entry](t, resp)
	assert.Equal(t, "sku-1", first.ItemKey)
	assert.Equal(t, 2, first.Quantity)
	assert.Equal(t, model.ActionAdded, first.Audit.Action)

	resp, err = executeJSON(t, "--as", "alice", "cart", "add", "sku-1", "-q", "3")
	require.NoError(t, err)
	merged := decodeData[model.Entry](t, resp)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 5, merged.Quantity)
	assert.Equal(t, model.ActionMerged, merged.Audit.Action)

	resp, err = executeJSON(t, "--as", "alice", "cart", "add", "sku-2")
	require.NoError(t, err)
	second := decodeData[model.Entry](t, resp)
	assert.Equal(t, 1, second.Quantity)

	resp, err = executeJSON(t, "--as", "alice", "cart", "count")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"total": 6}, decodeData[map[string]int64](t, resp))

	resp, err = executeJSON(t, "--as", "alice", "cart", "update", second.ID, "-q", "4")
	require.NoError(t, err)
	assert.Equal(t, 4, decodeData[model.Entry](t, resp).Quantity)

	_, err = execute(t, "--as", "alice", "cart", "remove", "--item", "sku-1")
	require.NoError(t, err)

	resp, err = executeJSON(t, "--as", "alice", "cart", "list")
	require.NoError(t, err)
	entries := decodeData[[]model.Entry](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, "sku-2", entries[0].ItemKey)
	assert.Equal(t, 4, entries[0].Quantity)
}

func TestCart_TextOutput(t *testing.T) {
	useTempStore(t)

	out, err := execute(t, "--as", "alice", "cart", "add", "sku-1", "-q", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ added ")
	assert.Contains(t, out, "sku-1  x2")

	out, err = execute(t, "--as", "bob", "cart", "list")
	require.NoError(t, err)
	assert.Equal(t, "cart is empty\n", out)

	out, err = execute(t, "--as", "alice", "cart", "count")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestWishlist_ConflictAndMembership(t *testing.T) {
	useTempStore(t)

	resp, err := executeJSON(t, "--as", "alice", "wishlist", "add", "sku-9")
	require.NoError(t, err)
	entry := decodeData[model.Entry](t, resp)
	assert.Zero(t, entry.Quantity)

	resp, err = executeJSON(t, "--as", "alice", "wishlist", "add", "sku-9")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(model.ErrCodeConflict), resp.Error.Code)

	out, err := execute(t, "--as", "alice", "wishlist", "has", "sku-9")
	require.NoError(t, err)
	assert.Equal(t, "✓ sku-9 is on the wishlist\n", out)

	out, err = execute(t, "--as", "bob", "wishlist", "has", "sku-9")
	require.NoError(t, err)
	assert.Equal(t, "✗ sku-9 is not on the wishlist\n", out)

	_, err = execute(t, "--as", "alice", "wishlist", "remove", entry.ID)
	require.NoError(t, err)

	resp, err = executeJSON(t, "--as", "alice", "wishlist", "has", "sku-9")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"member": false}, decodeData[map[string]bool](t, resp))
}

func TestCollection_Errors(t *testing.T) {
	useTempStore(t)

	tests := []struct {
		name string
		args []string
		code model.ErrorCode
	}{
		{"no owner", []string{"cart", "list"}, model.ErrCodeAuthenticationRequired},
		{"no remove target", []string{"--as", "alice", "cart", "remove"}, model.ErrCodeValidation},
		{"unknown entry", []string{"--as", "alice", "cart", "update", "missing", "-q", "2"}, model.ErrCodeNotFound},
		{"unknown removal", []string{"--as", "alice", "wishlist", "remove", "--item", "sku-0"}, model.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := executeJSON(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.code), resp.Error.Code)
		})
	}
}

func TestCollection_TokenAuth(t *testing.T) {
	useTempStore(t)
	secret := "test-secret"
	t.Setenv("MALLSTORE_JWT_SECRET", secret)

	provider, err := identity.NewJWTProvider([]byte(secret))
	require.NoError(t, err)
	token, err := provider.Issue("carol", time.Hour)
	require.NoError(t, err)

	resp, err := executeJSON(t, "--token", token, "cart", "add", "sku-1")
	require.NoError(t, err)
	assert.Equal(t, "carol", decodeData[model.Entry](t, resp).OwnerID)

	resp, err = executeJSON(t, "--as", "carol", "cart", "list")
	require.Error(t, err, "--as is ignored when token auth is enabled")
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(model.ErrCodeAuthenticationRequired), resp.Error.Code)
}

func TestOrdersAndApprovals_EmptyStore(t *testing.T) {
	useTempStore(t)

	out, err := execute(t, "--as", "staff", "orders", "list")
	require.NoError(t, err)
	assert.Equal(t, "No orders.\n", out)

	resp, err := executeJSON(t, "--as", "staff", "approvals", "stats")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalSummary{}, decodeData[model.ApprovalSummary](t, resp))
}
