// Package approval aggregates the catalog review backlog for staff.
package approval

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/model"
	"github.com/roach88/mallstore/internal/query"
)

// Aggregator computes approval summaries.
type Aggregator struct {
	gw gateway.Gateway
}

// NewAggregator creates an aggregator over gw.
func NewAggregator(gw gateway.Gateway) *Aggregator {
	return &Aggregator{gw: gw}
}

// Pending products, rejected products, and approved products that still
// have at least one variant under review.
var (
	pendingProducts = query.Count{
		From:   "products",
		Filter: query.Eq("status", model.ReviewPending),
	}

	rejectedProducts = query.Count{
		From:   "products",
		Filter: query.Eq("status", model.ReviewRejected),
	}

	variantApprovals = query.Count{
		From: "products",
		Join: &query.Join{Table: "product_variants", ForeignKey: "product_id", LocalKey: "id"},
		Filter: query.AllOf(
			query.Eq("products.status", model.ReviewApproved),
			query.Neq("product_variants.status", model.ReviewApproved),
		),
	}
)

// ComputeApprovalStats runs the three counts concurrently. A product has a
// single status, so the categories are disjoint and Total is their sum.
// Any failed count fails the whole summary.
func (a *Aggregator) ComputeApprovalStats(ctx context.Context) (model.ApprovalSummary, error) {
	var s model.ApprovalSummary

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Pending, err = a.gw.Count(ctx, pendingProducts)
		return err
	})
	g.Go(func() (err error) {
		s.Rejected, err = a.gw.Count(ctx, rejectedProducts)
		return err
	})
	g.Go(func() (err error) {
		s.VariantApprovals, err = a.gw.Count(ctx, variantApprovals)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.ApprovalSummary{}, model.NewRemoteFailure("compute approval stats", err)
	}

	s.Total = s.Pending + s.Rejected + s.VariantApprovals
	return s, nil
}
