// Package querysql compiles query IR to parameterized SQL.
//
// Output always uses ? placeholders; callers targeting Postgres rebind them
// (sqlx.Rebind) before execution. Values are never interpolated.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/mallstore/internal/query"
)

// Dialect selects dialect-specific fragments.
type Dialect int

const (
	// SQLite uses COLLATE BINARY for the deterministic id tiebreaker.
	SQLite Dialect = iota
	// Postgres uses COLLATE "C" for the deterministic id tiebreaker.
	Postgres
)

// Compiler compiles query IR to SQL.
type Compiler struct {
	Dialect Dialect
}

// NewCompiler creates a Compiler for the given dialect.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{Dialect: d}
}

// Compile converts a query or mutation to (sql, params).
//
// Every Select ends with an id tiebreaker so that identical inputs produce
// identical row order. Mutations return the affected rows (RETURNING *).
func (c *Compiler) Compile(node any) (string, []any, error) {
	if err := query.Validate(node); err != nil {
		return "", nil, err
	}

	switch n := node.(type) {
	case query.Select:
		return c.compileSelect(n)
	case *query.Select:
		return c.compileSelect(*n)
	case query.Count:
		return c.compileCount(n)
	case *query.Count:
		return c.compileCount(*n)
	case query.Insert:
		return c.compileInsert(n)
	case *query.Insert:
		return c.compileInsert(*n)
	case query.Update:
		return c.compileUpdate(n)
	case *query.Update:
		return c.compileUpdate(*n)
	case query.Delete:
		return c.compileDelete(n)
	case *query.Delete:
		return c.compileDelete(*n)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", node)
	}
}

func (c *Compiler) compileSelect(s query.Select) (string, []any, error) {
	columns := "*"
	if len(s.Columns) > 0 {
		columns = strings.Join(s.Columns, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", columns, s.From)

	params, err := c.writeWhere(&b, s.Filter)
	if err != nil {
		return "", nil, err
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(c.orderBy(s.OrderBy))

	if s.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", s.Limit)
	}

	return b.String(), params, nil
}

// orderBy renders the caller's terms plus the id tiebreaker.
func (c *Compiler) orderBy(terms []query.Order) string {
	parts := make([]string, 0, len(terms)+1)
	hasID := false
	for _, o := range terms {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		if o.Field == "id" {
			hasID = true
			parts = append(parts, fmt.Sprintf("id %s %s", c.collate(), dir))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", o.Field, dir))
	}
	if !hasID {
		parts = append(parts, fmt.Sprintf("id %s ASC", c.collate()))
	}
	return strings.Join(parts, ", ")
}

func (c *Compiler) collate() string {
	if c.Dialect == Postgres {
		return `COLLATE "C"`
	}
	return "COLLATE BINARY"
}

func (c *Compiler) compileCount(q query.Count) (string, []any, error) {
	var b strings.Builder
	if q.Join == nil {
		fmt.Fprintf(&b, "SELECT COUNT(*) FROM %s", q.From)
	} else {
		// Parent rows count once however many children match.
		fmt.Fprintf(&b, "SELECT COUNT(DISTINCT %s.id) FROM %s INNER JOIN %s ON %s.%s = %s.%s",
			q.From, q.From, q.Join.Table,
			q.Join.Table, q.Join.ForeignKey, q.From, q.Join.LocalKey)
	}

	params, err := c.writeWhere(&b, q.Filter)
	if err != nil {
		return "", nil, err
	}
	return b.String(), params, nil
}

func (c *Compiler) compileInsert(i query.Insert) (string, []any, error) {
	cols := query.SortedKeys(i.Row)
	placeholders := make([]string, len(cols))
	params := make([]any, len(cols))
	for idx, col := range cols {
		placeholders[idx] = "?"
		params[idx] = i.Row[col]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		i.Into, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return sql, params, nil
}

func (c *Compiler) compileUpdate(u query.Update) (string, []any, error) {
	cols := query.SortedKeys(u.Set)
	sets := make([]string, len(cols))
	params := make([]any, 0, len(cols))
	for idx, col := range cols {
		sets[idx] = col + " = ?"
		params = append(params, u.Set[col])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", u.Table, strings.Join(sets, ", "))

	whereParams, err := c.writeWhere(&b, u.Filter)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(" RETURNING *")

	return b.String(), append(params, whereParams...), nil
}

func (c *Compiler) compileDelete(d query.Delete) (string, []any, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", d.From)

	params, err := c.writeWhere(&b, d.Filter)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(" RETURNING *")

	return b.String(), params, nil
}

func (c *Compiler) writeWhere(b *strings.Builder, p query.Predicate) ([]any, error) {
	if p == nil {
		return nil, nil
	}
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	b.WriteString(" WHERE ")
	b.WriteString(sql)
	return params, nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
func (c *Compiler) compilePredicate(p query.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case query.Equals:
		return compileEquals(pred)
	case *query.Equals:
		return compileEquals(*pred)
	case query.NotEquals:
		return compileNotEquals(pred)
	case *query.NotEquals:
		return compileNotEquals(*pred)
	case query.In:
		return compileIn(pred)
	case *query.In:
		return compileIn(*pred)
	case query.And:
		return c.compileAnd(pred)
	case *query.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq query.Equals) (string, []any, error) {
	if eq.Value == nil {
		return eq.Field + " IS NULL", nil, nil
	}
	return eq.Field + " = ?", []any{eq.Value}, nil
}

func compileNotEquals(neq query.NotEquals) (string, []any, error) {
	if neq.Value == nil {
		return neq.Field + " IS NOT NULL", nil, nil
	}
	return neq.Field + " <> ?", []any{neq.Value}, nil
}

func compileIn(in query.In) (string, []any, error) {
	if len(in.Values) == 0 {
		return "1 = 0", nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(in.Values)), ", ")
	params := make([]any, len(in.Values))
	copy(params, in.Values)
	return fmt.Sprintf("%s IN (%s)", in.Field, placeholders), params, nil
}

func (c *Compiler) compileAnd(and query.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}

	return strings.Join(parts, " AND "), params, nil
}
