package storefront

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mallstore/internal/approval"
	"github.com/roach88/mallstore/internal/collection"
	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/identity"
	"github.com/roach88/mallstore/internal/model"
	"github.com/roach88/mallstore/internal/orders"
	"github.com/roach88/mallstore/internal/views"
)

// Deps are the collaborators of a Service. Gateway, Registry and Identity
// are required.
type Deps struct {
	Gateway  gateway.Gateway
	Registry views.Registry
	Identity identity.Provider

	// Graph defaults to views.DefaultGraph.
	Graph *views.Graph
	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
	// IDs and Clock default to UUIDs and the wall clock.
	IDs   collection.IDGenerator
	Clock collection.Clock
}

// Service exposes the storefront operations.
type Service struct {
	identity identity.Provider
	coord    *views.Coordinator
	mutator  *collection.Mutator
	orders   *orders.Service
	approval *approval.Aggregator
	log      logrus.FieldLogger
}

// New wires a Service.
func New(d Deps) (*Service, error) {
	if d.Gateway == nil || d.Registry == nil || d.Identity == nil {
		return nil, errors.New("storefront: gateway, registry and identity are required")
	}

	log := d.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	graph := d.Graph
	if graph == nil {
		g, err := views.DefaultGraph()
		if err != nil {
			return nil, err
		}
		graph = g
	}

	coord := views.NewCoordinator(graph, d.Registry, log)

	opts := []collection.Option{collection.WithLogger(log)}
	if d.IDs != nil {
		opts = append(opts, collection.WithIDGenerator(d.IDs))
	}
	if d.Clock != nil {
		opts = append(opts, collection.WithClock(d.Clock))
	}

	return &Service{
		identity: d.Identity,
		coord:    coord,
		mutator:  collection.NewMutator(d.Gateway, coord, opts...),
		orders:   orders.NewService(d.Gateway, coord, log),
		approval: approval.NewAggregator(d.Gateway),
		log:      log,
	}, nil
}

// Coordinator returns the view coordinator.
func (s *Service) Coordinator() *views.Coordinator {
	return s.coord
}

// CurrentOwner resolves the caller.
func (s *Service) CurrentOwner(ctx context.Context) (string, error) {
	owner, err := s.identity.CurrentOwner(ctx)
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", model.NewAuthenticationRequiredError()
	}
	return owner, nil
}

// AddToCollection adds itemKey to the caller's collection.
func (s *Service) AddToCollection(ctx context.Context, c model.CollectionType, itemKey string, p model.Payload) (model.Entry, error) {
	owner, err := s.CurrentOwner(ctx)
	if err != nil {
		return model.Entry{}, err
	}
	return s.mutator.Add(ctx, c, owner, itemKey, withActor(p, owner))
}

// UpdateCollectionEntry rewrites one of the caller's entries.
func (s *Service) UpdateCollectionEntry(ctx context.Context, c model.CollectionType, entryID string, p model.Payload) (model.Entry, error) {
	owner, err := s.CurrentOwner(ctx)
	if err != nil {
		return model.Entry{}, err
	}
	return s.mutator.Update(ctx, c, owner, entryID, withActor(p, owner))
}

// RemoveFromCollection removes one of the caller's entries.
func (s *Service) RemoveFromCollection(ctx context.Context, c model.CollectionType, target model.Target) error {
	owner, err := s.CurrentOwner(ctx)
	if err != nil {
		return err
	}
	return s.mutator.Remove(ctx, c, owner, target)
}

// ListCollection returns the caller's entries from the cached view.
func (s *Service) ListCollection(ctx context.Context, c model.CollectionType) ([]model.Entry, error) {
	owner, err := s.CurrentOwner(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := model.ParseCollectionType(string(c)); err != nil {
		return nil, err
	}
	return views.Load(ctx, s.coord, views.CollectionKey(c, owner), func(ctx context.Context) ([]model.Entry, error) {
		return s.mutator.List(ctx, c, owner)
	})
}

// CartCount returns the total quantity in the caller's cart.
func (s *Service) CartCount(ctx context.Context) (int64, error) {
	owner, err := s.CurrentOwner(ctx)
	if err != nil {
		return 0, err
	}
	return views.Load(ctx, s.coord, views.CartCountKey(owner), func(ctx context.Context) (int64, error) {
		entries, err := s.mutator.List(ctx, model.Cart, owner)
		if err != nil {
			return 0, err
		}
		var total int64
		for _, e := range entries {
			total += int64(e.Quantity)
		}
		return total, nil
	})
}

// CheckMembership reports whether itemKey is on the caller's wishlist.
func (s *Service) CheckMembership(ctx context.Context, itemKey string) (bool, error) {
	owner, err := s.CurrentOwner(ctx)
	if err != nil {
		return false, err
	}
	itemKey = model.NormalizeKey(itemKey)
	if itemKey == "" {
		return false, nil
	}
	return views.Load(ctx, s.coord, views.MembershipKey(owner, itemKey), func(ctx context.Context) (bool, error) {
		return s.mutator.Contains(ctx, model.Wishlist, owner, itemKey)
	})
}

// MembershipSet returns the item keys on the caller's wishlist, oldest
// change first.
func (s *Service) MembershipSet(ctx context.Context) ([]string, error) {
	owner, err := s.CurrentOwner(ctx)
	if err != nil {
		return nil, err
	}
	return views.Load(ctx, s.coord, views.MembershipSetKey(owner), func(ctx context.Context) ([]string, error) {
		entries, err := s.mutator.List(ctx, model.Wishlist, owner)
		if err != nil {
			return nil, err
		}
		items := make([]string, 0, len(entries))
		for _, e := range entries {
			items = append(items, e.ItemKey)
		}
		return items, nil
	})
}

// ListGroupedOrders returns every order, newest first, from the cached
// view.
func (s *Service) ListGroupedOrders(ctx context.Context) ([]model.Order, error) {
	if _, err := s.CurrentOwner(ctx); err != nil {
		return nil, err
	}
	return views.Load(ctx, s.coord, views.OrdersKey, func(ctx context.Context) ([]model.Order, error) {
		return s.orders.ListGrouped(ctx, orders.Filter{})
	})
}

// ListCustomerOrders returns the caller's own orders.
func (s *Service) ListCustomerOrders(ctx context.Context) ([]model.Order, error) {
	owner, err := s.CurrentOwner(ctx)
	if err != nil {
		return nil, err
	}
	return views.Load(ctx, s.coord, views.OrdersForKey(owner), func(ctx context.Context) ([]model.Order, error) {
		return s.orders.ListGrouped(ctx, orders.Filter{CustomerID: owner})
	})
}

// UpdateOrderStatus moves every line of orderNo to status.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderNo, status string) error {
	owner, err := s.CurrentOwner(ctx)
	if err != nil {
		return err
	}
	n, err := s.orders.UpdateStatus(ctx, orderNo, status)
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"actor": owner, "order": orderNo, "lines": n}).Debug("status change applied")
	return nil
}

// GetApprovalStats returns the review backlog from the cached view. No
// storefront mutation changes review states, so the view lives until the
// registry drops it.
func (s *Service) GetApprovalStats(ctx context.Context) (model.ApprovalSummary, error) {
	if _, err := s.CurrentOwner(ctx); err != nil {
		return model.ApprovalSummary{}, err
	}
	return views.Load(ctx, s.coord, views.ApprovalStatsKey, s.approval.ComputeApprovalStats)
}

func withActor(p model.Payload, owner string) model.Payload {
	if p.Actor == "" {
		p.Actor = owner
	}
	return p
}
