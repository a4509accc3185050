// Package collection implements per-owner collection mutations (cart and
// wishlist) on top of the remote store gateway.
//
// Add is check-then-act: look up (owner, item), merge into a found entry or
// insert a new one. The store's UNIQUE(owner_id, item_key) constraint is the
// only serialization point. When a concurrent add wins the race the insert
// fails with a unique violation and the add is retried once as a merge
// (cart) or surfaced as Conflict (wishlist).
//
// Cart merges are compare-and-set: the update is filtered on the quantity
// that was read, so two merges of the same entry cannot lose an increment.
// A merge that matches no row is retried under the same single-retry budget.
//
// Every mutation is scoped by owner_id as well as by the selector, so an
// entry id belonging to someone else behaves exactly like a missing one.
// Dependent views are invalidated only after the store accepted the write.
package collection
