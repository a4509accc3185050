package harness

import (
	"context"
	"fmt"

	"github.com/roach88/mallstore/internal/model"
	"github.com/roach88/mallstore/internal/storefront"
)

// operation runs one storefront call and projects its result for the trace.
type operation func(ctx context.Context, svc *storefront.Service, args stepArgs) (any, error)

var operations = map[string]operation{
	"cart.add":        addOp(model.Cart),
	"cart.update":     updateOp(model.Cart),
	"cart.remove":     removeOp(model.Cart),
	"cart.list":       listOp(model.Cart),
	"cart.count":      cartCountOp,
	"wishlist.add":    addOp(model.Wishlist),
	"wishlist.update": updateOp(model.Wishlist),
	"wishlist.remove": removeOp(model.Wishlist),
	"wishlist.list":   listOp(model.Wishlist),
	"wishlist.has":    hasOp,
	"wishlist.items":  itemsOp,

	"orders.list":       ordersOp(false),
	"orders.mine":       ordersOp(true),
	"orders.set_status": setStatusOp,
	"approvals.stats":   approvalStatsOp,
}

func addOp(c model.CollectionType) operation {
	return func(ctx context.Context, svc *storefront.Service, args stepArgs) (any, error) {
		qty, err := args.num("quantity")
		if err != nil {
			return nil, err
		}
		e, err := svc.AddToCollection(ctx, c, args.str("item"), model.Payload{Quantity: qty})
		if err != nil {
			return nil, err
		}
		return entryResult(e), nil
	}
}

func updateOp(c model.CollectionType) operation {
	return func(ctx context.Context, svc *storefront.Service, args stepArgs) (any, error) {
		qty, err := args.num("quantity")
		if err != nil {
			return nil, err
		}
		e, err := svc.UpdateCollectionEntry(ctx, c, args.str("entry"), model.Payload{Quantity: qty})
		if err != nil {
			return nil, err
		}
		return entryResult(e), nil
	}
}

func removeOp(c model.CollectionType) operation {
	return func(ctx context.Context, svc *storefront.Service, args stepArgs) (any, error) {
		target := model.Target{EntryID: args.str("entry"), ItemKey: args.str("item")}
		return nil, svc.RemoveFromCollection(ctx, c, target)
	}
}

func listOp(c model.CollectionType) operation {
	return func(ctx context.Context, svc *storefront.Service, _ stepArgs) (any, error) {
		entries, err := svc.ListCollection(ctx, c)
		if err != nil {
			return nil, err
		}
		items := make([]string, len(entries))
		for i, e := range entries {
			items[i] = e.ItemKey
		}
		return map[string]any{"count": len(entries), "items": items}, nil
	}
}

func cartCountOp(ctx context.Context, svc *storefront.Service, _ stepArgs) (any, error) {
	total, err := svc.CartCount(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"total": total}, nil
}

func hasOp(ctx context.Context, svc *storefront.Service, args stepArgs) (any, error) {
	member, err := svc.CheckMembership(ctx, args.str("item"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"member": member}, nil
}

func itemsOp(ctx context.Context, svc *storefront.Service, _ stepArgs) (any, error) {
	items, err := svc.MembershipSet(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"items": items}, nil
}

func ordersOp(mine bool) operation {
	return func(ctx context.Context, svc *storefront.Service, _ stepArgs) (any, error) {
		list := svc.ListGroupedOrders
		if mine {
			list = svc.ListCustomerOrders
		}
		orders, err := list(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, len(orders))
		for i, o := range orders {
			media := 0
			for _, l := range o.Lines {
				media += len(l.Media)
			}
			out[i] = map[string]any{
				"order_no": o.OrderNo,
				"status":   o.Status,
				"lines":    len(o.Lines),
				"media":    media,
			}
		}
		return map[string]any{"orders": out}, nil
	}
}

func setStatusOp(ctx context.Context, svc *storefront.Service, args stepArgs) (any, error) {
	return nil, svc.UpdateOrderStatus(ctx, args.str("order"), args.str("status"))
}

func approvalStatsOp(ctx context.Context, svc *storefront.Service, _ stepArgs) (any, error) {
	s, err := svc.GetApprovalStats(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func entryResult(e model.Entry) map[string]any {
	out := map[string]any{"id": e.ID, "item": e.ItemKey}
	if e.Collection.HasQuantity() {
		out["quantity"] = e.Quantity
	}
	return out
}

// stepArgs are the YAML arguments of a flow step.
type stepArgs map[string]any

func (a stepArgs) str(key string) string {
	if v, ok := a[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func (a stepArgs) num(key string) (int, error) {
	switch v := a[key].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("arg %q: %v is not an integer", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("arg %q: unsupported type %T", key, v)
	}
}
