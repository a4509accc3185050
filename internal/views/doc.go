// Package views tracks the freshness of derived read views and fans out
// invalidations after successful mutations.
//
// A Graph maps each mutation kind to the view key templates it affects. The
// default graph is declared in graph.cue and compiled once. The Coordinator
// expands a kind against concrete Params and marks the resulting keys stale
// in a Registry; the next read through Load refetches and repopulates.
//
// Keys are plain strings with query-escaped components:
//
//	cart:{owner}                 cart entries
//	cart-count:{owner}           total cart quantity
//	wishlist:{owner}             wishlist entries
//	membership:{owner}           item keys on the owner's wishlist
//	membership:{owner}:{item}    wishlist membership of one item
//	orders                       grouped order list
//	orders:{customer}            grouped order list of one customer
//	approval-stats               approval summary
//
// Keys match exactly. Every key also carries a generation that Invalidate
// bumps; Load only caches a value when the generation it read before
// fetching is still current, so a fetch that overlaps an invalidation is
// never stored as fresh.
//
// Invalidation is local and best-effort. It never talks to the store and
// never fails the mutation that triggered it.
package views
