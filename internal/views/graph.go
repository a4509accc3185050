package views

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed graph.cue
var defaultGraphSource []byte

// Template is a view key with {owner}, {item} or {customer} placeholders.
type Template string

var placeholder = regexp.MustCompile(`\{([a-z]+)\}`)

// Placeholders returns the placeholder names used by t, in order.
func (t Template) Placeholders() []string {
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(string(t), -1) {
		names = append(names, m[1])
	}
	return names
}

// Expand substitutes p into t, escaping each value the way the key
// constructors do. It reports false when a placeholder has no value.
func (t Template) Expand(p Params) (Key, bool) {
	ok := true
	out := placeholder.ReplaceAllStringFunc(string(t), func(m string) string {
		var v string
		switch m {
		case "{owner}":
			v = p.Owner
		case "{item}":
			v = p.Item
		case "{customer}":
			v = p.Customer
		}
		if v == "" {
			ok = false
		}
		return segment(v)
	})
	return Key(out), ok
}

// Graph is the static mutation-kind to view-template mapping.
type Graph struct {
	edges map[Kind][]Template
}

var (
	defaultGraphOnce sync.Once
	defaultGraph     *Graph
	defaultGraphErr  error
)

// DefaultGraph returns the compiled built-in graph.
func DefaultGraph() (*Graph, error) {
	defaultGraphOnce.Do(func() {
		defaultGraph, defaultGraphErr = LoadGraph("graph.cue", defaultGraphSource)
	})
	return defaultGraph, defaultGraphErr
}

// LoadGraph compiles a CUE graph document. The document must define
// edges: [kind]: [...template]. Templates may only use the {owner}, {item}
// and {customer} placeholders.
func LoadGraph(filename string, src []byte) (*Graph, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	edgesVal := v.LookupPath(cue.ParsePath("edges"))
	if !edgesVal.Exists() {
		return nil, &GraphError{Field: "edges", Message: "edges is required", Pos: v.Pos()}
	}

	iter, err := edgesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	g := &Graph{edges: make(map[Kind][]Template)}
	for iter.Next() {
		kind := iter.Selector().Unquoted()
		if !strings.Contains(kind, ".") {
			return nil, &GraphError{
				Field:   kind,
				Message: "kind must be <subject>.<operation>",
				Pos:     iter.Value().Pos(),
			}
		}

		list, err := iter.Value().List()
		if err != nil {
			return nil, formatCUEError(err)
		}

		var templates []Template
		for list.Next() {
			s, err := list.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			t := Template(s)
			for _, name := range t.Placeholders() {
				if name != "owner" && name != "item" && name != "customer" {
					return nil, &GraphError{
						Field:   kind,
						Message: fmt.Sprintf("unknown placeholder {%s} in %q", name, s),
						Pos:     list.Value().Pos(),
					}
				}
			}
			templates = append(templates, t)
		}
		g.edges[Kind(kind)] = templates
	}

	return g, nil
}

// Kinds returns every declared kind in sorted order.
func (g *Graph) Kinds() []Kind {
	kinds := make([]Kind, 0, len(g.edges))
	for k := range g.edges {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Templates returns the templates declared for kind.
func (g *Graph) Templates(kind Kind) []Template {
	return g.edges[kind]
}

// Expand returns the keys kind affects for p, in declaration order.
// Templates whose placeholders p cannot fill are skipped. Unknown kinds
// affect nothing.
func (g *Graph) Expand(kind Kind, p Params) []Key {
	templates := g.edges[kind]
	keys := make([]Key, 0, len(templates))
	for _, t := range templates {
		if k, ok := t.Expand(p); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// GraphError is a graph compilation error with source position.
type GraphError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *GraphError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &GraphError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
