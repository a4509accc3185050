package query

import (
	"fmt"
	"regexp"
	"sort"
)

var (
	identifier          = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	qualifiedIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// Validate checks that a query or mutation is safe to hand to a backend.
// It returns the first problem found.
func Validate(node any) error {
	switch n := node.(type) {
	case Select:
		return validateSelect(n)
	case *Select:
		return validateSelect(*n)
	case Count:
		return validateCount(n)
	case *Count:
		return validateCount(*n)
	case Insert:
		return validateInsert(n)
	case *Insert:
		return validateInsert(*n)
	case Update:
		return validateUpdate(n)
	case *Update:
		return validateUpdate(*n)
	case Delete:
		return validateDelete(n)
	case *Delete:
		return validateDelete(*n)
	case nil:
		return fmt.Errorf("nil query")
	default:
		return fmt.Errorf("unsupported query type: %T", node)
	}
}

func validateTable(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

func validateField(name string) error {
	if !qualifiedIdentifier.MatchString(name) {
		return fmt.Errorf("invalid field name %q", name)
	}
	return nil
}

func validateSelect(s Select) error {
	if err := validateTable(s.From); err != nil {
		return err
	}
	for _, c := range s.Columns {
		if err := validateField(c); err != nil {
			return err
		}
	}
	for _, o := range s.OrderBy {
		if err := validateField(o.Field); err != nil {
			return err
		}
	}
	if s.Limit < 0 {
		return fmt.Errorf("negative limit %d", s.Limit)
	}
	return validatePredicate(s.Filter)
}

func validateCount(c Count) error {
	if err := validateTable(c.From); err != nil {
		return err
	}
	if c.Join != nil {
		if err := validateTable(c.Join.Table); err != nil {
			return err
		}
		if !identifier.MatchString(c.Join.ForeignKey) || !identifier.MatchString(c.Join.LocalKey) {
			return fmt.Errorf("invalid join keys %q/%q", c.Join.ForeignKey, c.Join.LocalKey)
		}
	}
	return validatePredicate(c.Filter)
}

func validateInsert(i Insert) error {
	if err := validateTable(i.Into); err != nil {
		return err
	}
	if len(i.Row) == 0 {
		return fmt.Errorf("insert into %s: empty row", i.Into)
	}
	for _, col := range SortedKeys(i.Row) {
		if !identifier.MatchString(col) {
			return fmt.Errorf("invalid column name %q", col)
		}
	}
	return nil
}

func validateUpdate(u Update) error {
	if err := validateTable(u.Table); err != nil {
		return err
	}
	if len(u.Set) == 0 {
		return fmt.Errorf("update %s: nothing to set", u.Table)
	}
	for _, col := range SortedKeys(u.Set) {
		if !identifier.MatchString(col) {
			return fmt.Errorf("invalid column name %q", col)
		}
	}
	if u.Filter == nil {
		return fmt.Errorf("update %s: unscoped update", u.Table)
	}
	return validatePredicate(u.Filter)
}

func validateDelete(d Delete) error {
	if err := validateTable(d.From); err != nil {
		return err
	}
	if d.Filter == nil {
		return fmt.Errorf("delete from %s: unscoped delete", d.From)
	}
	return validatePredicate(d.Filter)
}

func validatePredicate(p Predicate) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case Equals:
		return validateField(pred.Field)
	case *Equals:
		return validateField(pred.Field)
	case NotEquals:
		return validateField(pred.Field)
	case *NotEquals:
		return validateField(pred.Field)
	case In:
		return validateField(pred.Field)
	case *In:
		return validateField(pred.Field)
	case And:
		return validateAnd(pred)
	case *And:
		return validateAnd(*pred)
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func validateAnd(a And) error {
	for _, sub := range a.Predicates {
		if err := validatePredicate(sub); err != nil {
			return err
		}
	}
	return nil
}

// SortedKeys returns the keys of m in lexical order. Backends use it to emit
// columns deterministically.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
