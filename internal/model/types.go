package model

import (
	"fmt"
	"time"
)

// CollectionType names a per-owner collection.
type CollectionType string

const (
	// Cart is a quantity collection: repeat adds sum quantities.
	Cart CollectionType = "cart"

	// Wishlist is a set-membership collection: repeat adds conflict.
	Wishlist CollectionType = "wishlist"
)

// CollectionTypes lists every supported collection in declaration order.
var CollectionTypes = []CollectionType{Cart, Wishlist}

// ParseCollectionType validates a collection name.
func ParseCollectionType(s string) (CollectionType, error) {
	for _, c := range CollectionTypes {
		if string(c) == s {
			return c, nil
		}
	}
	return "", NewValidationError(fmt.Sprintf("unknown collection %q", s))
}

// HasQuantity reports whether entries of this collection carry a quantity.
func (c CollectionType) HasQuantity() bool {
	return c == Cart
}

// Table returns the relational table backing the collection.
func (c CollectionType) Table() string {
	switch c {
	case Cart:
		return "carts"
	case Wishlist:
		return "wishlists"
	default:
		return ""
	}
}

// Audit actions recorded on entries.
const (
	ActionAdded   = "added"
	ActionMerged  = "merged"
	ActionUpdated = "updated"
)

// Audit records who last touched an entry and how.
type Audit struct {
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// Entry is one row of a collection (a cart line or a wishlist entry).
type Entry struct {
	ID         string         `json:"id"`
	Collection CollectionType `json:"collection"`
	OwnerID    string         `json:"owner_id"`
	ItemKey    string         `json:"item_key"`

	// Quantity is always 0 for set-membership collections.
	Quantity int   `json:"quantity,omitempty"`
	Audit    Audit `json:"audit"`
}

// Payload carries the caller-supplied part of a mutation.
type Payload struct {
	Quantity int
	Actor    string
}

// Target selects an entry for removal, by id or by item key.
type Target struct {
	EntryID string
	ItemKey string
}

// Validate requires exactly one selector.
func (t Target) Validate() error {
	switch {
	case t.EntryID == "" && t.ItemKey == "":
		return NewValidationError("either entry id or item key is required")
	case t.EntryID != "" && t.ItemKey != "":
		return NewValidationError("entry id and item key are mutually exclusive")
	}
	return nil
}

// Order statuses accepted by scoped status updates.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// OrderStatuses lists the statuses an order may move to.
var OrderStatuses = []string{StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	for _, st := range OrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Customer is the purchasing account (or visitor) snapshot on an order line.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Media is an image or panorama attached to an item variant.
type Media struct {
	ID        string `json:"id"`
	VariantID string `json:"variant_id"`
	URL       string `json:"url"`
	Kind      string `json:"kind,omitempty"`
}

// OrderLine is one persisted row of an order.
type OrderLine struct {
	ID           string    `json:"id"`
	OrderNo      string    `json:"order_no"`
	Date         time.Time `json:"date"`
	DeliveryDate time.Time `json:"delivery_date"`
	Status       string    `json:"status"`
	VariantID    string    `json:"variant_id"`
	Customer     Customer  `json:"customer"`
	Quantity     int       `json:"quantity"`

	// Media is filled by the second-pass enrichment; never nil once enriched.
	Media []Media `json:"media"`
}

// Order is the reconstructed aggregate of all lines sharing one order number.
// Header fields come from the first line observed for the order.
type Order struct {
	OrderNo      string      `json:"order_no"`
	Date         time.Time   `json:"date"`
	DeliveryDate time.Time   `json:"delivery_date"`
	Status       string      `json:"status"`
	Customer     Customer    `json:"customer"`
	Lines        []OrderLine `json:"lines"`
}

// Review states of products and variants.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// ApprovalSummary counts items by review state for staff tooling.
type ApprovalSummary struct {
	Pending          int64 `json:"pending"`
	Rejected         int64 `json:"rejected"`
	VariantApprovals int64 `json:"variant_approvals"`
	Total            int64 `json:"total"`
}
