package harness

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mallstore/internal/model"
)

// Scenario defines a storefront test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Owner is the default caller for flow steps.
	Owner string `yaml:"owner"`

	// Seed rows are inserted through the gateway before the flow runs.
	// They bypass the storefront and invalidate nothing.
	Seed []SeedRow `yaml:"seed,omitempty"`

	// Flow contains the operations to run, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final collections, views and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// SeedRow is one row inserted into a table.
type SeedRow struct {
	Table string         `yaml:"table"`
	Row   map[string]any `yaml:"row"`
}

// FlowStep invokes one storefront operation.
type FlowStep struct {
	// Invoke is the operation name, e.g. "cart.add".
	Invoke string `yaml:"invoke"`

	// As overrides the scenario owner for this step.
	As string `yaml:"as,omitempty"`

	// Anonymous runs the step without an identity.
	Anonymous bool `yaml:"anonymous,omitempty"`

	Args map[string]any `yaml:"args,omitempty"`

	// Expect validates the outcome. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Case is "OK" or a model error code such as "CONFLICT".
	Case string `yaml:"case"`

	// Result is a subset match against the step's result.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the state after the flow.
type Assertion struct {
	Type string `yaml:"type"`

	// Collection and Owner select a collection (collection_count,
	// entry_quantity). Owner defaults to the scenario owner.
	Collection string `yaml:"collection,omitempty"`
	Owner      string `yaml:"owner,omitempty"`

	// Item and Quantity are used by entry_quantity.
	Item     string `yaml:"item,omitempty"`
	Quantity int    `yaml:"quantity,omitempty"`

	// Count is used by collection_count and trace_count.
	Count int `yaml:"count,omitempty"`

	// Key is the view key for stale and fresh.
	Key string `yaml:"key,omitempty"`

	// Op and Args are used by trace_contains and trace_count.
	Op   string         `yaml:"op,omitempty"`
	Args map[string]any `yaml:"args,omitempty"`
}

// Assertion type constants.
const (
	AssertCollectionCount = "collection_count"
	AssertEntryQuantity   = "entry_quantity"
	AssertStale           = "stale"
	AssertFresh           = "fresh"
	AssertTraceContains   = "trace_contains"
	AssertTraceCount      = "trace_count"
)

// CaseOK is the outcome case of a successful step.
const CaseOK = "OK"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict fields catch typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// Operations lists the operation names a flow step may invoke.
func Operations() []string {
	ops := make([]string, 0, len(operations))
	for op := range operations {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, row := range s.Seed {
		if row.Table == "" {
			return fmt.Errorf("seed[%d]: table is required", i)
		}
		if len(row.Row) == 0 {
			return fmt.Errorf("seed[%d]: row is required", i)
		}
	}

	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
		if _, ok := operations[step.Invoke]; !ok {
			return fmt.Errorf("flow[%d]: unknown operation %q", i, step.Invoke)
		}
		if step.Anonymous && step.As != "" {
			return fmt.Errorf("flow[%d]: as and anonymous are mutually exclusive", i)
		}
		if !step.Anonymous && step.As == "" && s.Owner == "" {
			return fmt.Errorf("flow[%d]: no owner (set scenario owner or step as)", i)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCollectionCount:
		if _, err := model.ParseCollectionType(a.Collection); err != nil {
			return fmt.Errorf("assertions[%d]: collection_count: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertEntryQuantity:
		if a.Item == "" {
			return fmt.Errorf("assertions[%d]: item is required for entry_quantity", index)
		}
		if a.Quantity < 1 {
			return fmt.Errorf("assertions[%d]: quantity must be at least 1 for entry_quantity", index)
		}
	case AssertStale, AssertFresh:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for %s", index, a.Type)
		}
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
