// Package harness runs storefront scenarios as executable contract tests.
//
// A scenario seeds rows, drives the storefront through a flow of
// operations and then asserts on the final collections and on which
// derived views are stale. Every step goes through the real storefront
// service, so the recorded trace reflects what the service returned.
//
// # Scenario Format
//
//	name: cart_merge
//	description: "Repeated adds merge into one cart line"
//	owner: alice
//	seed:
//	  - table: products
//	    row: { id: p1, name: Lamp, status: pending }
//	flow:
//	  - invoke: cart.add
//	    args: { item: sku-1, quantity: 2 }
//	    expect:
//	      case: OK
//	      result: { quantity: 2 }
//	  - invoke: wishlist.add
//	    as: bob
//	    args: { item: sku-1 }
//	assertions:
//	  - type: collection_count
//	    collection: cart
//	    count: 1
//	  - type: entry_quantity
//	    item: sku-1
//	    quantity: 2
//	  - type: stale
//	    key: cart:alice
//
// # Operations
//
//	cart.add, cart.update, cart.remove, cart.list, cart.count
//	wishlist.add, wishlist.update, wishlist.remove, wishlist.list, wishlist.has
//	wishlist.items
//	orders.list, orders.mine, orders.set_status
//	approvals.stats
//
// A step's outcome case is "OK" or the model error code, for example
// "CONFLICT" or "NOT_FOUND".
//
// # Assertion Types
//
//   - collection_count: number of entries an owner holds in a collection
//   - entry_quantity: quantity of one cart entry
//   - stale / fresh: state of a view key in the registry
//   - trace_contains: an operation appears in the trace with matching args
//   - trace_count: an operation appears exactly N times
//
// # Deterministic Testing
//
// Each run gets a fresh in-memory SQLite store, a testutil.FixedClock and
// sequential entry ids ("entry-0001", ...), so traces are byte-identical
// between runs and can be compared against golden files.
package harness
