package harness

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mallstore/internal/identity"
	"github.com/roach88/mallstore/internal/model"
	"github.com/roach88/mallstore/internal/query"
	"github.com/roach88/mallstore/internal/store"
	"github.com/roach88/mallstore/internal/storefront"
	"github.com/roach88/mallstore/internal/testutil"
	"github.com/roach88/mallstore/internal/views"
)

// CaseError is the outcome case of a step that failed with an error that
// carries no model error code.
const CaseError = "ERROR"

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and entry ids.
type Harness struct {
	store    *store.Store
	registry *views.MemoryRegistry
	clock    *testutil.FixedClock
	ids      *testutil.SequentialIDs
	logger   logrus.FieldLogger
	services map[string]*storefront.Service
	seq      int64
}

// Run executes a scenario with logging discarded.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, testutil.DiscardLogger())
}

// RunWithLogger executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Insert seed rows
// 3. Execute flow steps through the storefront, checking expect clauses
// 4. Evaluate assertions
func RunWithLogger(scenario *Scenario, logger logrus.FieldLogger) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		registry: views.NewMemoryRegistry(),
		clock:    testutil.NewFixedClock(),
		ids:      testutil.NewSequentialIDs("entry"),
		logger:   logger.WithField("scenario", scenario.Name),
		services: make(map[string]*storefront.Service),
	}

	ctx := context.Background()

	if err := h.executeSeed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to execute seed: %w", err)
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Ctx:      ctx,
		Gateway:  st,
		Registry: h.registry,
		Owner:    scenario.Owner,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSeed inserts seed rows directly through the gateway.
func (h *Harness) executeSeed(ctx context.Context, seed []SeedRow) error {
	for i, row := range seed {
		if _, err := h.store.Insert(ctx, query.Insert{Into: row.Table, Row: row.Row}); err != nil {
			return fmt.Errorf("seed[%d] into %s: %w", i, row.Table, err)
		}
	}
	return nil
}

// executeFlow runs the flow steps and validates expect clauses against
// what the storefront actually returned.
func (h *Harness) executeFlow(ctx context.Context, scenario *Scenario, result *Result) error {
	for i, step := range scenario.Flow {
		caller := step.As
		if caller == "" && !step.Anonymous {
			caller = scenario.Owner
		}

		svc, err := h.service(caller)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		args, err := canonical(step.Args)
		if err != nil {
			return fmt.Errorf("flow step %d: args: %w", i, err)
		}
		h.seq++
		result.AddInvocationTrace(step.Invoke, caller, args, h.seq)

		out, opErr := operations[step.Invoke](ctx, svc, stepArgs(step.Args))
		outcome := outcomeOf(opErr)

		actual, err := canonical(out)
		if err != nil {
			return fmt.Errorf("flow step %d: result: %w", i, err)
		}
		h.seq++
		result.AddCompletionTrace(outcome, actual, h.seq)

		h.logger.WithFields(logrus.Fields{
			"step":    i,
			"op":      step.Invoke,
			"as":      caller,
			"outcome": outcome,
		}).Debug("flow step completed")

		want := CaseOK
		if step.Expect != nil {
			want = step.Expect.Case
		}
		if outcome != want {
			msg := fmt.Sprintf("flow[%d] %s: expected case %s, got %s", i, step.Invoke, want, outcome)
			if opErr != nil {
				msg += ": " + opErr.Error()
			}
			result.AddError(msg)
			continue
		}

		if step.Expect != nil && len(step.Expect.Result) > 0 {
			expected, err := canonical(step.Expect.Result)
			if err != nil {
				return fmt.Errorf("flow step %d: expected result: %w", i, err)
			}
			if !matchArgs(actual, expected.(map[string]any)) {
				result.AddError(fmt.Sprintf("flow[%d] %s: expected result %v, got %v", i, step.Invoke, expected, actual))
			}
		}
	}

	return nil
}

// service returns the storefront bound to owner, sharing store, registry,
// clock and ids across owners. An empty owner is unauthenticated.
func (h *Harness) service(owner string) (*storefront.Service, error) {
	if svc, ok := h.services[owner]; ok {
		return svc, nil
	}

	svc, err := storefront.New(storefront.Deps{
		Gateway:  h.store,
		Registry: h.registry,
		Identity: identity.Static{OwnerID: owner},
		Logger:   h.logger,
		IDs:      h.ids,
		Clock:    h.clock,
	})
	if err != nil {
		return nil, err
	}
	h.services[owner] = svc
	return svc, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return CaseOK
	}
	if code := model.CodeOf(err); code != "" {
		return string(code)
	}
	return CaseError
}

// canonical round-trips v through JSON so that YAML-decoded and
// service-produced values compare equal (all numbers become float64).
func canonical(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
