// Package model defines the storefront domain: per-owner collections (cart,
// wishlist), order lines and the derived shapes rebuilt from them.
//
// Entries are the only persisted state the core mutates. Orders,
// ApprovalSummary and membership answers are derived: they have no identity
// of their own and exist only as read results.
//
// # Invariants
//
// At most one Entry exists per (OwnerID, ItemKey) per CollectionType. The
// relational store enforces this with a UNIQUE constraint; the core relies on
// it rather than on its own check-then-act lookup.
//
// All OrderLines sharing an order number carry identical header fields
// (date, delivery date, status, customer).
package model
