package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mallstore/internal/metrics"
)

// Coordinator marks dependent views stale after a mutation.
type Coordinator struct {
	graph    *Graph
	registry Registry
	log      logrus.FieldLogger
}

// NewCoordinator creates a coordinator over graph and registry.
func NewCoordinator(graph *Graph, registry Registry, log logrus.FieldLogger) *Coordinator {
	return &Coordinator{graph: graph, registry: registry, log: log}
}

// Graph returns the dependency graph.
func (c *Coordinator) Graph() *Graph {
	return c.graph
}

// Registry returns the view registry.
func (c *Coordinator) Registry() Registry {
	return c.registry
}

// Invalidate marks every view kind affects stale and returns the keys.
// Call only after the mutation succeeded.
func (c *Coordinator) Invalidate(ctx context.Context, kind Kind, p Params) []Key {
	keys := c.graph.Expand(kind, p)
	c.registry.Invalidate(ctx, keys...)
	metrics.RecordInvalidation(string(kind))

	c.log.WithFields(logrus.Fields{
		"kind": kind,
		"keys": len(keys),
	}).Debug("views invalidated")
	return keys
}

// Load returns the cached value for key when fresh; otherwise it calls
// fetch, stores the result and returns it. A failed fetch leaves the key
// stale. The result is only cached if key was not invalidated while fetch
// ran. A failed store is logged and the fetched value still returned.
func Load[T any](ctx context.Context, c *Coordinator, key Key, fetch func(context.Context) (T, error)) (T, error) {
	if cached, ok := c.registry.Get(ctx, key); ok {
		v, err := decodeCached[T](cached)
		if err == nil {
			return v, nil
		}
		c.log.WithError(err).WithField("key", key).Warn("discarding undecodable cached view")
	}

	gen, genErr := c.registry.Generation(ctx, key)
	if genErr != nil {
		c.log.WithError(genErr).WithField("key", key).Warn("could not read view generation")
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	metrics.RecordRebuild(string(key))

	if genErr != nil {
		return v, nil
	}
	switch err := c.registry.Put(ctx, key, v, gen); {
	case errors.Is(err, ErrSuperseded):
		c.log.WithField("key", key).Debug("view invalidated during fetch, not cached")
	case err != nil:
		c.log.WithError(err).WithField("key", key).Warn("could not cache view")
	}
	return v, nil
}

func decodeCached[T any](cached any) (T, error) {
	switch v := cached.(type) {
	case T:
		return v, nil
	case json.RawMessage:
		var out T
		if err := json.Unmarshal(v, &out); err != nil {
			return out, fmt.Errorf("decode cached view: %w", err)
		}
		return out, nil
	default:
		var zero T
		return zero, fmt.Errorf("cached view has type %T", cached)
	}
}
