// Package storefront is the entry point for callers: it resolves the
// current owner through an identity.Provider, passes it explicitly into
// the collection, order and approval services, and serves the derived
// read views through the view registry.
//
// Mutations write through the gateway and then invalidate; reads go
// through views.Load and refetch only stale views.
package storefront
