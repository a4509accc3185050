package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AcceptsScopedQueries(t *testing.T) {
	testCases := []struct {
		name string
		node any
	}{
		{"select", Select{From: "carts", Filter: Eq("owner_id", "u1"), OrderBy: []Order{Asc("id")}}},
		{"select pointer", &Select{From: "carts", Columns: []string{"id", "quantity"}}},
		{"count with join", Count{
			From:   "products",
			Join:   &Join{Table: "product_variants", ForeignKey: "product_id", LocalKey: "id"},
			Filter: AllOf(Eq("products.status", "approved"), Neq("product_variants.status", "approved")),
		}},
		{"insert", Insert{Into: "wishlists", Row: map[string]any{"id": "e1", "owner_id": "u1"}}},
		{"update", Update{Table: "carts", Set: map[string]any{"quantity": 3}, Filter: AllOf(Eq("id", "e1"), Eq("owner_id", "u1"))}},
		{"delete", Delete{From: "carts", Filter: Eq("id", "e1")}},
		{"in", Select{From: "orders", Filter: In{Field: "status", Values: []any{"paid", "shipped"}}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, Validate(tc.node))
		})
	}
}

func TestValidate_RejectsUnsafeNodes(t *testing.T) {
	testCases := []struct {
		name string
		node any
		want string
	}{
		{"nil", nil, "nil query"},
		{"bad table", Select{From: "carts; DROP TABLE carts"}, "invalid table name"},
		{"bad field", Select{From: "carts", Filter: Eq("owner_id = 1 OR 1", "x")}, "invalid field name"},
		{"double qualified", Select{From: "carts", OrderBy: []Order{Asc("a.b.c")}}, "invalid field name"},
		{"unscoped update", Update{Table: "carts", Set: map[string]any{"quantity": 1}}, "unscoped update"},
		{"unscoped delete", Delete{From: "carts"}, "unscoped delete"},
		{"empty insert", Insert{Into: "carts"}, "empty row"},
		{"empty set", Update{Table: "carts", Filter: Eq("id", "x")}, "nothing to set"},
		{"negative limit", Select{From: "carts", Limit: -1}, "negative limit"},
		{"bad join", Count{From: "products", Join: &Join{Table: "v", ForeignKey: "x y", LocalKey: "id"}}, "invalid join keys"},
		{"unknown node", "SELECT 1", "unsupported query type"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.node)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]any{"c": 1, "a": 2, "b": 3}))
}
