package views

import (
	"net/url"

	"github.com/roach88/mallstore/internal/model"
)

// Key identifies one derived view. Keys are matched exactly; invalidating
// a key never touches another.
type Key string

// Kind names a mutation for dependency lookup, e.g. "cart.add".
type Kind string

// Mutation operations.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
)

// Mutation kinds declared by the default graph.
const (
	KindCartAdd        Kind = "cart.add"
	KindCartUpdate     Kind = "cart.update"
	KindCartRemove     Kind = "cart.remove"
	KindWishlistAdd    Kind = "wishlist.add"
	KindWishlistUpdate Kind = "wishlist.update"
	KindWishlistRemove Kind = "wishlist.remove"
	KindOrderStatus    Kind = "order.status"
)

// MutationKind returns the kind for an operation on a collection.
func MutationKind(c model.CollectionType, op string) Kind {
	return Kind(string(c) + "." + op)
}

// Params supplies placeholder values for key templates.
type Params struct {
	Owner    string
	Item     string
	Customer string
}

// Fixed keys.
const (
	OrdersKey        Key = "orders"
	ApprovalStatsKey Key = "approval-stats"
)

// segment escapes one key component so that ':' inside an owner or item
// can never shift the boundary between components.
func segment(s string) string {
	return url.QueryEscape(s)
}

// CollectionKey is the entry list view of an owner's collection.
func CollectionKey(c model.CollectionType, owner string) Key {
	return Key(string(c) + ":" + segment(owner))
}

// CartCountKey is the total quantity view of an owner's cart.
func CartCountKey(owner string) Key {
	return Key("cart-count:" + segment(owner))
}

// MembershipKey is the membership view of one item in an owner's wishlist.
func MembershipKey(owner, item string) Key {
	return Key("membership:" + segment(owner) + ":" + segment(item))
}

// MembershipSetKey is the view of every item key on an owner's wishlist.
func MembershipSetKey(owner string) Key {
	return Key("membership:" + segment(owner))
}

// OrdersForKey scopes the grouped order list to a customer. An empty
// customer is the unscoped list.
func OrdersForKey(customerID string) Key {
	if customerID == "" {
		return OrdersKey
	}
	return Key(string(OrdersKey) + ":" + segment(customerID))
}
