// Package dataset implements immutable in-memory relations and the
// relational operators the analyses are composed from: equi-joins, grouped
// aggregation, derived duration columns and window ranking.
//
// A Dataset is never modified after construction. Every operation returns a
// new Dataset, so datasets can be shared between goroutines without locking.
// A nil value is SQL NULL.
package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Kind is the type of a column.
type Kind int

const (
	KindInt    Kind = iota + 1 // int64
	KindFloat                  // float64
	KindString                 // string
	KindBool                   // bool
	KindTime                   // time.Time
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) numeric() bool { return k == KindInt || k == KindFloat }

// Column describes one named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Dataset is an ordered sequence of rows sharing one column set.
type Dataset struct {
	cols  []Column
	index map[string]int
	rows  [][]any
}

// New builds a dataset from a schema and row values. Rows are copied and
// values are normalised to the canonical Go type of their column kind
// (int, int32 and friends become int64, float32 becomes float64).
func New(cols []Column, rows [][]any) (*Dataset, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			return nil, &SchemaError{Op: "new", Column: c.Name, Reason: "empty column name"}
		}
		if _, dup := index[c.Name]; dup {
			return nil, &SchemaError{Op: "new", Column: c.Name, Reason: "duplicate column"}
		}
		if c.Kind < KindInt || c.Kind > KindTime {
			return nil, &SchemaError{Op: "new", Column: c.Name, Reason: "unknown kind " + c.Kind.String()}
		}
		index[c.Name] = i
	}
	out := make([][]any, len(rows))
	for r, row := range rows {
		if len(row) != len(cols) {
			return nil, &ValueError{Op: "new", Row: r, Reason: fmt.Sprintf("row has %d values, schema has %d columns", len(row), len(cols))}
		}
		vals := make([]any, len(row))
		for i, v := range row {
			nv, ok := normalize(v, cols[i].Kind)
			if !ok {
				return nil, &SchemaError{Op: "new", Column: cols[i].Name, Reason: fmt.Sprintf("row %d: %T is not %s", r, v, cols[i].Kind)}
			}
			vals[i] = nv
		}
		out[r] = vals
	}
	return &Dataset{cols: append([]Column(nil), cols...), index: index, rows: out}, nil
}

// MustNew is like New but panics on error. It is meant for fixtures.
func MustNew(cols []Column, rows [][]any) *Dataset {
	d, err := New(cols, rows)
	if err != nil {
		panic(err)
	}
	return d
}

// build wraps already validated columns and rows without copying.
func build(cols []Column, rows [][]any) *Dataset {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c.Name] = i
	}
	return &Dataset{cols: cols, index: index, rows: rows}
}

func normalize(v any, k Kind) (any, bool) {
	if v == nil {
		return nil, true
	}
	switch k {
	case KindInt:
		switch t := v.(type) {
		case int64:
			return t, true
		case int:
			return int64(t), true
		case int32:
			return int64(t), true
		case int16:
			return int64(t), true
		case int8:
			return int64(t), true
		case uint32:
			return int64(t), true
		case uint16:
			return int64(t), true
		case uint8:
			return int64(t), true
		}
	case KindFloat:
		switch t := v.(type) {
		case float64:
			return t, true
		case float32:
			return float64(t), true
		case int64:
			return float64(t), true
		case int:
			return float64(t), true
		}
	case KindString:
		switch t := v.(type) {
		case string:
			return t, true
		case []byte:
			return string(t), true
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, true
		}
	case KindTime:
		if t, ok := v.(time.Time); ok {
			return t, true
		}
	}
	return nil, false
}

// Columns returns a copy of the schema.
func (d *Dataset) Columns() []Column { return append([]Column(nil), d.cols...) }

// ColumnNames returns the column names in schema order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Index returns the position of the named column.
func (d *Dataset) Index(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// Column returns the definition of the named column.
func (d *Dataset) Column(name string) (Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	return d.cols[i], true
}

// Row returns a copy of the i-th row's values in schema order.
func (d *Dataset) Row(i int) []any { return append([]any(nil), d.rows[i]...) }

// Rows returns a copy of all row values.
func (d *Dataset) Rows() [][]any {
	out := make([][]any, len(d.rows))
	for i := range d.rows {
		out[i] = d.Row(i)
	}
	return out
}

// Value returns the value of column name in row i.
func (d *Dataset) Value(i int, name string) (any, error) {
	c, ok := d.index[name]
	if !ok {
		return nil, &SchemaError{Op: "value", Column: name, Reason: "unknown column"}
	}
	if i < 0 || i >= len(d.rows) {
		return nil, &ValueError{Op: "value", Row: i, Column: name, Reason: "row out of range"}
	}
	return d.rows[i][c], nil
}

// Select projects the dataset onto the named columns, in the given order.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	idx, err := d.indices("select", names)
	if err != nil {
		return nil, err
	}
	cols := make([]Column, len(idx))
	for i, c := range idx {
		cols[i] = d.cols[c]
	}
	rows := make([][]any, len(d.rows))
	for r, row := range d.rows {
		vals := make([]any, len(idx))
		for i, c := range idx {
			vals[i] = row[c]
		}
		rows[r] = vals
	}
	return build(cols, rows), nil
}

// Filter keeps the rows for which pred evaluates to true. Rows where pred is
// false or null are dropped.
func (d *Dataset) Filter(pred Expr) (*Dataset, error) {
	b, err := pred.bind(d)
	if err != nil {
		return nil, err
	}
	if b.kind != KindBool {
		return nil, &SchemaError{Op: "filter", Column: b.name, Reason: "predicate is " + b.kind.String() + ", not bool"}
	}
	var rows [][]any
	for _, row := range d.rows {
		if v, _ := b.eval(row).(bool); v {
			rows = append(rows, row)
		}
	}
	return build(d.cols, rows), nil
}

// WithColumn returns a dataset with column name set to the value of e for
// every row. An existing column of that name is replaced in place.
func (d *Dataset) WithColumn(name string, e Expr) (*Dataset, error) {
	if name == "" {
		return nil, &SchemaError{Op: "with_column", Column: name, Reason: "empty column name"}
	}
	b, err := e.bind(d)
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(d.rows))
	for r, row := range d.rows {
		vals[r] = b.eval(row)
	}
	return d.withValues(Column{Name: name, Kind: b.kind}, vals), nil
}

// withValues sets column c to vals, replacing a column of the same name.
func (d *Dataset) withValues(c Column, vals []any) *Dataset {
	pos, replace := d.index[c.Name]
	cols := append([]Column(nil), d.cols...)
	if replace {
		cols[pos] = c
	} else {
		pos = len(cols)
		cols = append(cols, c)
	}
	rows := make([][]any, len(d.rows))
	for r, row := range d.rows {
		out := make([]any, len(cols))
		copy(out, row)
		out[pos] = vals[r]
		rows[r] = out
	}
	return build(cols, rows)
}

// SortKey orders rows by one column.
type SortKey struct {
	Column string
	Desc   bool
}

// Asc orders by column ascending, nulls first.
func Asc(column string) SortKey { return SortKey{Column: column} }

// Desc orders by column descending, nulls last.
func Desc(column string) SortKey { return SortKey{Column: column, Desc: true} }

type boundKey struct {
	col  int
	desc bool
}

func (d *Dataset) bindKeys(op string, keys []SortKey) ([]boundKey, error) {
	out := make([]boundKey, len(keys))
	for i, k := range keys {
		c, ok := d.index[k.Column]
		if !ok {
			return nil, &SchemaError{Op: op, Column: k.Column, Reason: "unknown column"}
		}
		out[i] = boundKey{col: c, desc: k.Desc}
	}
	return out, nil
}

// compareRows orders two rows by the bound keys.
func compareRows(a, b []any, keys []boundKey) int {
	for _, k := range keys {
		av, bv := a[k.col], b[k.col]
		var c int
		switch {
		case av == nil && bv == nil:
			c = 0
		case av == nil:
			c = -1
		case bv == nil:
			c = 1
		default:
			c = compare(av, bv)
		}
		if k.desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// OrderBy sorts rows by the given keys. The sort is stable: rows comparing
// equal keep their relative order.
func (d *Dataset) OrderBy(keys ...SortKey) (*Dataset, error) {
	bk, err := d.bindKeys("order_by", keys)
	if err != nil {
		return nil, err
	}
	rows := append([][]any(nil), d.rows...)
	sort.SliceStable(rows, func(i, j int) bool { return compareRows(rows[i], rows[j], bk) < 0 })
	return build(d.cols, rows), nil
}

// Limit keeps at most the first n rows. A negative n keeps none.
func (d *Dataset) Limit(n int) *Dataset {
	if n < 0 {
		n = 0
	}
	if n > len(d.rows) {
		n = len(d.rows)
	}
	return build(d.cols, d.rows[:n:n])
}

// Equal reports whether both datasets have the same schema and the same rows
// in the same order.
func (d *Dataset) Equal(o *Dataset) bool {
	if len(d.cols) != len(o.cols) || len(d.rows) != len(o.rows) {
		return false
	}
	for i := range d.cols {
		if d.cols[i] != o.cols[i] {
			return false
		}
	}
	for r := range d.rows {
		for c := range d.rows[r] {
			if !valuesEqual(d.rows[r][c], o.rows[r][c]) {
				return false
			}
		}
	}
	return true
}

func (d *Dataset) indices(op string, names []string) ([]int, error) {
	seen := make(map[string]bool, len(names))
	out := make([]int, len(names))
	for i, n := range names {
		c, ok := d.index[n]
		if !ok {
			return nil, &SchemaError{Op: op, Column: n, Reason: "unknown column"}
		}
		if seen[n] {
			return nil, &SchemaError{Op: op, Column: n, Reason: "duplicate column"}
		}
		seen[n] = true
		out[i] = c
	}
	return out, nil
}

type jsonColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// MarshalJSON renders the dataset as {"columns": [...], "rows": [[...]]}.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	cols := make([]jsonColumn, len(d.cols))
	for i, c := range d.cols {
		cols[i] = jsonColumn{Name: c.Name, Type: c.Kind.String()}
	}
	rows := d.rows
	if rows == nil {
		rows = [][]any{}
	}
	return json.Marshal(struct {
		Columns []jsonColumn `json:"columns"`
		Rows    [][]any      `json:"rows"`
	}{cols, rows})
}
