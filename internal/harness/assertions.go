package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/model"
	"github.com/roach88/mallstore/internal/query"
	"github.com/roach88/mallstore/internal/views"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == "invocation" {
				fmt.Fprintf(&buf, "  [%d] %s as=%s %v\n", i+1, event.Op, event.As, event.Args)
			}
		}
	}

	return buf.String()
}

// AssertionContext provides the state assertions inspect.
type AssertionContext struct {
	Ctx      context.Context
	Gateway  gateway.Gateway
	Registry views.Registry

	// Owner is the default owner for collection assertions.
	Owner string
}

func (a *AssertionContext) owner(assertion Assertion) string {
	if assertion.Owner != "" {
		return assertion.Owner
	}
	return a.Owner
}

// assertCollectionCount reads the collection straight from the gateway so
// the check does not depend on cached views.
func assertCollectionCount(actx *AssertionContext, assertion Assertion) error {
	c, err := model.ParseCollectionType(assertion.Collection)
	if err != nil {
		return err
	}
	owner := actx.owner(assertion)

	n, err := actx.Gateway.Count(actx.Ctx, query.Count{
		From:   c.Table(),
		Filter: query.Eq("owner_id", owner),
	})
	if err != nil {
		return fmt.Errorf("collection_count: %w", err)
	}

	if n != int64(assertion.Count) {
		return &AssertionError{
			Type:     AssertCollectionCount,
			Expected: fmt.Sprintf("%d entries in %s of %s", assertion.Count, c, owner),
			Actual:   fmt.Sprintf("%d entries", n),
		}
	}
	return nil
}

// assertEntryQuantity checks the stored quantity of one cart entry.
func assertEntryQuantity(actx *AssertionContext, assertion Assertion) error {
	owner := actx.owner(assertion)
	item := model.NormalizeKey(assertion.Item)

	rows, err := actx.Gateway.Select(actx.Ctx, query.Select{
		From:    model.Cart.Table(),
		Columns: []string{"quantity"},
		Filter:  query.AllOf(query.Eq("owner_id", owner), query.Eq("item_key", item)),
	})
	if err != nil {
		return fmt.Errorf("entry_quantity: %w", err)
	}
	if len(rows) == 0 {
		return &AssertionError{
			Type:     AssertEntryQuantity,
			Expected: fmt.Sprintf("cart entry %q of %s", item, owner),
			Actual:   "entry not found",
		}
	}

	qty, err := rows[0].Int("quantity")
	if err != nil {
		return fmt.Errorf("entry_quantity: %w", err)
	}
	if qty != int64(assertion.Quantity) {
		return &AssertionError{
			Type:     AssertEntryQuantity,
			Expected: fmt.Sprintf("quantity %d for %q", assertion.Quantity, item),
			Actual:   fmt.Sprintf("quantity %d", qty),
		}
	}
	return nil
}

// assertViewState checks whether a view key is stale or fresh.
func assertViewState(actx *AssertionContext, assertion Assertion, wantStale bool) error {
	key := views.Key(assertion.Key)
	stale := actx.Registry.IsStale(actx.Ctx, key)
	if stale == wantStale {
		return nil
	}

	state := func(s bool) string {
		if s {
			return "stale"
		}
		return "fresh"
	}
	return &AssertionError{
		Type:     assertion.Type,
		Expected: fmt.Sprintf("view %s %s", key, state(wantStale)),
		Actual:   state(stale),
	}
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified op and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expected, err := canonical(assertion.Args)
	if err != nil {
		return err
	}
	want, _ := expected.(map[string]any)

	for _, event := range trace {
		if event.Type == "invocation" && event.Op == assertion.Op && matchArgs(event.Args, want) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("op %s with args %v", assertion.Op, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks if the op appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == "invocation" && event.Op == assertion.Op {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// matchArgs checks if actual contains all expected keys (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}

	actualMap, ok := actual.(map[string]any)
	if !ok {
		return false
	}

	for key, expectedVal := range expected {
		actualVal, exists := actualMap[key]
		if !exists {
			return false
		}
		if !reflect.DeepEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCollectionCount, AssertEntryQuantity, AssertStale, AssertFresh:
			if actx == nil || actx.Gateway == nil || actx.Registry == nil {
				err = fmt.Errorf("assertion[%d]: %s requires store context", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertCollectionCount:
				err = assertCollectionCount(actx, assertion)
			case AssertEntryQuantity:
				err = assertEntryQuantity(actx, assertion)
			default:
				err = assertViewState(actx, assertion, assertion.Type == AssertStale)
			}
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
