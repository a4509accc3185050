package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Testdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/cart_merge.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_WrongCaseFails(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_case
description: "A conflicting add expected to succeed"
owner: alice
flow:
  - invoke: wishlist.add
    args: { item: sku-1 }
  - invoke: wishlist.add
    args: { item: sku-1 }
assertions:
  - type: collection_count
    collection: wishlist
    count: 1
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected case OK, got CONFLICT")
}

func TestRun_WrongResultFails(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_result
description: "A merge reports the summed quantity"
owner: alice
flow:
  - invoke: cart.add
    args: { item: sku-1, quantity: 1 }
  - invoke: cart.add
    args: { item: sku-1, quantity: 1 }
    expect:
      case: OK
      result: { quantity: 1 }
assertions:
  - type: entry_quantity
    item: sku-1
    quantity: 2
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected result")
}

func TestRun_FailedAssertionsReported(t *testing.T) {
	scenario := mustParse(t, `
name: failed_assertions
description: "Assertions that do not hold"
owner: alice
flow:
  - invoke: cart.add
    args: { item: sku-1, quantity: 1 }
assertions:
  - type: collection_count
    collection: cart
    count: 2
  - type: entry_quantity
    item: sku-2
    quantity: 1
  - type: fresh
    key: "cart:alice"
  - type: trace_count
    op: cart.add
    count: 3
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "Expected: 2 entries in cart of alice")
	assert.Contains(t, result.Errors[1], "entry not found")
	assert.Contains(t, result.Errors[2], "Actual: stale")
	assert.Contains(t, result.Errors[3], "1 occurrences")
}

func TestRun_UpdateAndRemoveByEntry(t *testing.T) {
	scenario := mustParse(t, `
name: update_remove
description: "Entries are addressed by id and scoped to their owner"
owner: alice
flow:
  - invoke: cart.add
    args: { item: sku-1, quantity: 1 }
  - invoke: cart.add
    args: { item: sku-2, quantity: 1 }
  - invoke: cart.update
    args: { entry: entry-0001, quantity: 4 }
    expect:
      case: OK
      result: { quantity: 4 }
  - invoke: cart.update
    as: bob
    args: { entry: entry-0001, quantity: 9 }
    expect:
      case: NOT_FOUND
  - invoke: cart.remove
    args: { entry: entry-0002 }
  - invoke: cart.remove
    args: { item: sku-2 }
    expect:
      case: NOT_FOUND
  - invoke: cart.update
    args: { entry: entry-0001, quantity: 0 }
    expect:
      case: VALIDATION
assertions:
  - type: collection_count
    collection: cart
    count: 1
  - type: entry_quantity
    item: sku-1
    quantity: 4
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Trace, 14)
}

func TestRun_BadSeedIsAnError(t *testing.T) {
	scenario := mustParse(t, `
name: bad_seed
description: "Seed rows must satisfy the schema"
owner: alice
seed:
  - table: product_media
    row: { id: m1, variant_id: missing, url: x.jpg }
flow:
  - invoke: cart.list
assertions:
  - type: collection_count
    collection: cart
    count: 0
`)

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed[0] into product_media")
}

func mustParse(t *testing.T, content string) *Scenario {
	t.Helper()
	scenario, err := ParseScenario([]byte(content))
	require.NoError(t, err)
	return scenario
}
