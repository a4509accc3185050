package query

// Query is a read against the store.
type Query interface {
	queryNode()
}

// Mutation is a write against the store.
type Mutation interface {
	mutationNode()
}

// Predicate is a row filter.
type Predicate interface {
	predicateNode()
}

// Select reads rows.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order> LIMIT <limit>
//
// Empty Columns selects every column. Limit 0 means unbounded.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate
	OrderBy []Order
	Limit   int
}

func (Select) queryNode() {}

// Order is one ORDER BY term.
type Order struct {
	Field string
	Desc  bool
}

// Asc orders by field ascending.
func Asc(field string) Order { return Order{Field: field} }

// Desc orders by field descending.
func Desc(field string) Order { return Order{Field: field, Desc: true} }

// Count counts rows of From matching Filter.
//
// When Join is set the count runs over From INNER JOIN Join.Table and filter
// fields may be qualified with either table name. Parent rows are counted
// once regardless of how many child rows match.
type Count struct {
	From   string
	Join   *Join
	Filter Predicate
}

func (Count) queryNode() {}

// Join describes an inner join from a parent table to a child table:
//
//	<from> INNER JOIN <table> ON <table>.<foreign_key> = <from>.<local_key>
type Join struct {
	Table      string
	ForeignKey string
	LocalKey   string
}

// Insert adds a single row.
type Insert struct {
	Into string
	Row  map[string]any
}

func (Insert) mutationNode() {}

// Update sets columns on every row matching Filter. A nil Filter is rejected
// by Validate: unscoped updates are never issued.
type Update struct {
	Table  string
	Set    map[string]any
	Filter Predicate
}

func (Update) mutationNode() {}

// Delete removes every row matching Filter. A nil Filter is rejected by
// Validate.
type Delete struct {
	From   string
	Filter Predicate
}

func (Delete) mutationNode() {}

// Equals matches rows where Field = Value.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// NotEquals matches rows where Field <> Value.
type NotEquals struct {
	Field string
	Value any
}

func (NotEquals) predicateNode() {}

// In matches rows where Field is one of Values. An empty Values matches
// nothing.
type In struct {
	Field  string
	Values []any
}

func (In) predicateNode() {}

// And is a conjunction. An empty And matches everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Eq builds an Equals predicate.
func Eq(field string, value any) Equals {
	return Equals{Field: field, Value: value}
}

// Neq builds a NotEquals predicate.
func Neq(field string, value any) NotEquals {
	return NotEquals{Field: field, Value: value}
}

// AllOf builds an And over preds.
func AllOf(preds ...Predicate) And {
	return And{Predicates: preds}
}
