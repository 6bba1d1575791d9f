package dataset

// JoinKind selects which side's unmatched rows survive a join.
type JoinKind int

const (
	Inner JoinKind = iota
	Left
	Right
)

func (k JoinKind) String() string {
	switch k {
	case Inner:
		return "inner"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

// Join performs an equi-join of left and right on the shared key columns.
//
// The result holds the key columns once, then the non-key columns of left,
// then the non-key columns of right. Rows match when every key is equal and
// non-null. For Left and Right joins the preserved side's unmatched rows are
// kept with nulls in the other side's columns. Output follows the preserved
// side's row order (left for Inner), matches in the other side's order.
func Join(left, right *Dataset, on []string, kind JoinKind) (*Dataset, error) {
	if kind != Inner && kind != Left && kind != Right {
		return nil, &JoinKeyError{Reason: "unknown join kind"}
	}
	lk, rk, err := joinKeys(left, right, on)
	if err != nil {
		return nil, err
	}

	isKey := make(map[string]bool, len(on))
	for _, k := range on {
		isKey[k] = true
	}
	cols := make([]Column, 0, len(left.cols)+len(right.cols)-len(on))
	for _, c := range lk {
		cols = append(cols, left.cols[c])
	}
	var lrest, rrest []int
	seen := make(map[string]bool)
	for i, c := range left.cols {
		if !isKey[c.Name] {
			lrest = append(lrest, i)
			seen[c.Name] = true
			cols = append(cols, c)
		}
	}
	for i, c := range right.cols {
		if isKey[c.Name] {
			continue
		}
		if seen[c.Name] {
			return nil, &SchemaError{Op: "join", Column: c.Name, Reason: "present on both sides"}
		}
		rrest = append(rrest, i)
		cols = append(cols, c)
	}

	emit := func(keySrc []any, keyCols []int, l, r []any) []any {
		out := make([]any, 0, len(cols))
		for _, c := range keyCols {
			out = append(out, keySrc[c])
		}
		for _, c := range lrest {
			if l == nil {
				out = append(out, nil)
			} else {
				out = append(out, l[c])
			}
		}
		for _, c := range rrest {
			if r == nil {
				out = append(out, nil)
			} else {
				out = append(out, r[c])
			}
		}
		return out
	}

	var rows [][]any
	if kind == Right {
		idx := hashIndex(left, lk)
		for _, r := range right.rows {
			k, ok := tupleKey(r, rk)
			matches := idx[k]
			if !ok || len(matches) == 0 {
				rows = append(rows, emit(r, rk, nil, r))
				continue
			}
			for _, m := range matches {
				rows = append(rows, emit(r, rk, left.rows[m], r))
			}
		}
		return build(cols, rows), nil
	}

	idx := hashIndex(right, rk)
	for _, l := range left.rows {
		k, ok := tupleKey(l, lk)
		var matches []int
		if ok {
			matches = idx[k]
		}
		if len(matches) == 0 {
			if kind == Left {
				rows = append(rows, emit(l, lk, l, nil))
			}
			continue
		}
		for _, m := range matches {
			rows = append(rows, emit(l, lk, l, right.rows[m]))
		}
	}
	return build(cols, rows), nil
}

func joinKeys(left, right *Dataset, on []string) (lk, rk []int, err error) {
	if len(on) == 0 {
		return nil, nil, &JoinKeyError{Reason: "no join keys"}
	}
	seen := make(map[string]bool, len(on))
	for _, k := range on {
		if k == "" {
			return nil, nil, &JoinKeyError{Reason: "empty key name"}
		}
		if seen[k] {
			return nil, nil, &JoinKeyError{Key: k, Reason: "duplicate key"}
		}
		seen[k] = true
		l, ok := left.index[k]
		if !ok {
			return nil, nil, &JoinKeyError{Key: k, Reason: "missing on left side"}
		}
		r, ok := right.index[k]
		if !ok {
			return nil, nil, &JoinKeyError{Key: k, Reason: "missing on right side"}
		}
		if left.cols[l].Kind != right.cols[r].Kind {
			return nil, nil, &JoinKeyError{Key: k, Reason: "kind " + left.cols[l].Kind.String() + " does not match " + right.cols[r].Kind.String()}
		}
		lk = append(lk, l)
		rk = append(rk, r)
	}
	return lk, rk, nil
}

// hashIndex maps each non-null key tuple to the rows holding it, in row order.
func hashIndex(d *Dataset, cols []int) map[string][]int {
	idx := make(map[string][]int, len(d.rows))
	for i, row := range d.rows {
		if k, ok := tupleKey(row, cols); ok {
			idx[k] = append(idx[k], i)
		}
	}
	return idx
}
