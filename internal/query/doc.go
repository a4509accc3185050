// Package query provides the intermediate representation of the row-oriented
// operations the storefront core issues against the remote store.
//
// The IR is the abstraction boundary between the core and its store
// backends:
//
//	[collection / orders / approval] → [query IR] → [SQL backend]
//	                                               → [PostgREST backend]
//
// It covers exactly what the remote store contract promises: filtered select
// with ordering and limit, counts (optionally across one inner join), insert,
// and scoped update/delete. All predicates are ANDed.
//
// # Sealed interfaces
//
// Query, Mutation and Predicate are sealed with marker methods so backends can
// switch exhaustively over the node types:
//
//	switch q := query.(type) {
//	case Select:
//	case Count:
//	}
//
// # Identifiers
//
// Table and column names are interpolated by backends, so Validate rejects any
// identifier outside [A-Za-z_][A-Za-z0-9_]* (optionally qualified once with a
// table name). Values are always passed as parameters.
package query
