package dataset

type aggFunc int

const (
	aggCount aggFunc = iota + 1
	aggSum
)

// Aggregation is one aggregate computed per group.
type Aggregation struct {
	fn     aggFunc
	column string
	alias  string
	orZero bool
}

// Count counts the non-null values of column within each group.
func Count(column string) Aggregation { return Aggregation{fn: aggCount, column: column} }

// Sum adds up the non-null values of a numeric column within each group.
// A group whose values are all null sums to null unless OrZero is used.
func Sum(column string) Aggregation { return Aggregation{fn: aggSum, column: column} }

// As names the output column.
func (a Aggregation) As(alias string) Aggregation {
	a.alias = alias
	return a
}

// OrZero makes an all-null Sum yield zero instead of null.
func (a Aggregation) OrZero() Aggregation {
	a.orZero = true
	return a
}

func (a Aggregation) name() string {
	if a.alias != "" {
		return a.alias
	}
	if a.fn == aggCount {
		return "count(" + a.column + ")"
	}
	return "sum(" + a.column + ")"
}

// Grouped is a dataset partitioned by key columns, awaiting aggregation.
type Grouped struct {
	d    *Dataset
	keys []string
}

// GroupBy groups rows by the distinct tuples of the key columns.
func (d *Dataset) GroupBy(keys ...string) *Grouped {
	return &Grouped{d: d, keys: keys}
}

type aggState struct {
	count int64
	isum  int64
	fsum  float64
	seen  bool
}

type group struct {
	keys   []any
	states []aggState
}

// Agg computes aggs for every group and returns one row per group: the key
// columns followed by one column per aggregation. Null key values form
// their own group. Groups appear in order of first occurrence; callers that
// need a particular order must sort.
func (g *Grouped) Agg(aggs ...Aggregation) (*Dataset, error) {
	d := g.d
	if len(g.keys) == 0 {
		return nil, &EmptyInputError{Op: "group_by", Reason: "no grouping keys"}
	}
	keyCols, err := d.indices("group_by", g.keys)
	if err != nil {
		return nil, err
	}
	cols := make([]Column, 0, len(keyCols)+len(aggs))
	names := make(map[string]bool)
	for _, c := range keyCols {
		cols = append(cols, d.cols[c])
		names[d.cols[c].Name] = true
	}
	aggCols := make([]int, len(aggs))
	for i, a := range aggs {
		c, ok := d.index[a.column]
		if !ok {
			return nil, &SchemaError{Op: "agg", Column: a.column, Reason: "unknown column"}
		}
		aggCols[i] = c
		out := Column{Name: a.name(), Kind: KindInt}
		if a.fn == aggSum {
			if !d.cols[c].Kind.numeric() {
				return nil, &SchemaError{Op: "sum", Column: a.column, Reason: "not numeric"}
			}
			out.Kind = d.cols[c].Kind
		}
		if names[out.Name] {
			return nil, &SchemaError{Op: "agg", Column: out.Name, Reason: "duplicate output column"}
		}
		names[out.Name] = true
		cols = append(cols, out)
	}

	var order []*group
	groups := make(map[string]*group)
	for _, row := range d.rows {
		k := groupKey(row, keyCols)
		gr, ok := groups[k]
		if !ok {
			kv := make([]any, len(keyCols))
			for i, c := range keyCols {
				kv[i] = row[c]
			}
			gr = &group{keys: kv, states: make([]aggState, len(aggs))}
			groups[k] = gr
			order = append(order, gr)
		}
		for i, c := range aggCols {
			v := row[c]
			if v == nil {
				continue
			}
			st := &gr.states[i]
			st.seen = true
			st.count++
			switch t := v.(type) {
			case int64:
				st.isum += t
			case float64:
				st.fsum += t
			}
		}
	}

	rows := make([][]any, len(order))
	for r, gr := range order {
		out := make([]any, 0, len(cols))
		out = append(out, gr.keys...)
		for i, a := range aggs {
			st := gr.states[i]
			kind := cols[len(keyCols)+i].Kind
			switch {
			case a.fn == aggCount:
				out = append(out, st.count)
			case !st.seen && !a.orZero:
				out = append(out, nil)
			case kind == KindInt:
				out = append(out, st.isum)
			default:
				out = append(out, st.fsum)
			}
		}
		rows[r] = out
	}
	return build(cols, rows), nil
}
