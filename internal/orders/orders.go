// Package orders reads order lines as grouped orders and applies scoped
// status updates across every line of an order number.
package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/model"
	"github.com/roach88/mallstore/internal/query"
	"github.com/roach88/mallstore/internal/reconstruct"
	"github.com/roach88/mallstore/internal/views"
)

// Filter narrows ListGrouped. The zero value lists every order.
type Filter struct {
	CustomerID string
}

// Service reads and updates orders.
type Service struct {
	gw    gateway.Gateway
	media reconstruct.MediaLookup
	coord *views.Coordinator
	log   logrus.FieldLogger
}

// NewService creates an order service. Media is looked up through gw.
func NewService(gw gateway.Gateway, coord *views.Coordinator, log logrus.FieldLogger) *Service {
	return &Service{
		gw:    gw,
		media: reconstruct.NewGatewayMediaLookup(gw),
		coord: coord,
		log:   log,
	}
}

// ListGrouped returns orders newest first, each with its lines enriched
// with media.
func (s *Service) ListGrouped(ctx context.Context, f Filter) ([]model.Order, error) {
	var filter query.Predicate
	if f.CustomerID != "" {
		filter = query.Eq("customer_id", f.CustomerID)
	}

	rows, err := s.gw.Select(ctx, query.Select{
		From:    "orders",
		Filter:  filter,
		OrderBy: []query.Order{query.Desc("order_date"), query.Asc("order_no")},
	})
	if err != nil {
		return nil, model.NewRemoteFailure("list orders", err)
	}

	lines := make([]model.OrderLine, 0, len(rows))
	for _, row := range rows {
		line, err := lineFromRow(row)
		if err != nil {
			return nil, model.NewRemoteFailure("list orders", err)
		}
		lines = append(lines, line)
	}

	lines = reconstruct.EnrichWithMedia(ctx, s.media, lines, s.log)
	return reconstruct.GroupOrderLines(lines), nil
}

// UpdateStatus sets status on every line of orderNo and returns how many
// lines changed. The unscoped order list and the list of each customer
// owning a changed line go stale.
func (s *Service) UpdateStatus(ctx context.Context, orderNo, status string) (int, error) {
	orderNo = model.NormalizeKey(orderNo)
	status = strings.ToLower(strings.TrimSpace(status))
	if orderNo == "" {
		return 0, model.NewValidationError("order number is required")
	}
	if !model.ValidOrderStatus(status) {
		return 0, model.NewValidationError(fmt.Sprintf("unknown order status %q", status))
	}

	rows, err := s.gw.Update(ctx, query.Update{
		Table:  "orders",
		Set:    map[string]any{"status": status},
		Filter: query.Eq("order_no", orderNo),
	})
	if err != nil {
		return 0, model.NewRemoteFailure("update order status", err)
	}
	if len(rows) == 0 {
		return 0, model.NewNotFoundError("", "", orderNo)
	}

	customers := make(map[string]struct{}, 1)
	for _, row := range rows {
		customers[row.String("customer_id")] = struct{}{}
	}
	for customer := range customers {
		s.coord.Invalidate(ctx, views.KindOrderStatus, views.Params{Customer: customer})
	}
	s.log.WithFields(logrus.Fields{
		"order":  orderNo,
		"status": status,
		"lines":  len(rows),
	}).Info("order status updated")
	return len(rows), nil
}

func lineFromRow(row gateway.Row) (model.OrderLine, error) {
	date, err := row.Time("order_date")
	if err != nil {
		return model.OrderLine{}, err
	}
	delivery, err := row.Time("delivery_date")
	if err != nil {
		return model.OrderLine{}, err
	}
	qty, err := row.Int("quantity")
	if err != nil {
		return model.OrderLine{}, err
	}

	return model.OrderLine{
		ID:           row.String("id"),
		OrderNo:      row.String("order_no"),
		Date:         date,
		DeliveryDate: delivery,
		Status:       row.String("status"),
		VariantID:    row.String("variant_id"),
		Customer: model.Customer{
			ID:   row.String("customer_id"),
			Name: row.String("customer_name"),
		},
		Quantity: int(qty),
	}, nil
}
