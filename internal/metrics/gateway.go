package metrics

import (
	"context"
	"time"

	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/query"
)

// Instrumented wraps a gateway so every call is timed and counted under
// backend.
func Instrumented(gw gateway.Gateway, backend string) gateway.Gateway {
	return &instrumentedGateway{next: gw, backend: backend}
}

type instrumentedGateway struct {
	next    gateway.Gateway
	backend string
}

func (g *instrumentedGateway) Select(ctx context.Context, q query.Select) ([]gateway.Row, error) {
	start := time.Now()
	rows, err := g.next.Select(ctx, q)
	RecordGatewayCall(g.backend, "select", time.Since(start), err)
	return rows, err
}

func (g *instrumentedGateway) Count(ctx context.Context, q query.Count) (int64, error) {
	start := time.Now()
	n, err := g.next.Count(ctx, q)
	RecordGatewayCall(g.backend, "count", time.Since(start), err)
	return n, err
}

func (g *instrumentedGateway) Insert(ctx context.Context, m query.Insert) (gateway.Row, error) {
	start := time.Now()
	row, err := g.next.Insert(ctx, m)
	RecordGatewayCall(g.backend, "insert", time.Since(start), err)
	return row, err
}

func (g *instrumentedGateway) Update(ctx context.Context, m query.Update) ([]gateway.Row, error) {
	start := time.Now()
	rows, err := g.next.Update(ctx, m)
	RecordGatewayCall(g.backend, "update", time.Since(start), err)
	return rows, err
}

func (g *instrumentedGateway) Delete(ctx context.Context, m query.Delete) ([]gateway.Row, error) {
	start := time.Now()
	rows, err := g.next.Delete(ctx, m)
	RecordGatewayCall(g.backend, "delete", time.Since(start), err)
	return rows, err
}
