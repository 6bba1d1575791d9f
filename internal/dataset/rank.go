package dataset

import "sort"

// RankMode selects how tied rows are numbered.
type RankMode int

const (
	// DenseRank gives tied rows the same rank and the next distinct value
	// the previous rank plus one.
	DenseRank RankMode = iota + 1
	// RowNumber numbers rows 1, 2, 3, ... with ties broken by original row
	// order.
	RowNumber
)

// RankColumn is the column TopNWithTies and Leaders write ranks to.
const RankColumn = "rank"

// Window scopes a ranking: rows are ranked separately within each distinct
// PartitionBy tuple, ordered by OrderBy.
type Window struct {
	PartitionBy []string
	OrderBy     []SortKey
}

// WithRank adds int column out holding each row's rank within its window.
// Row order is unchanged. Ranking an empty dataset yields an empty dataset.
func (d *Dataset) WithRank(out string, mode RankMode, w Window) (*Dataset, error) {
	if mode != DenseRank && mode != RowNumber {
		return nil, &EmptyInputError{Op: "rank", Reason: "unknown rank mode"}
	}
	if out == "" {
		return nil, &SchemaError{Op: "rank", Column: out, Reason: "empty column name"}
	}
	if len(w.OrderBy) == 0 {
		return nil, &EmptyInputError{Op: "rank", Reason: "window has no ordering keys"}
	}
	seen := make(map[string]bool, len(w.PartitionBy))
	for _, p := range w.PartitionBy {
		if p == "" {
			return nil, &EmptyInputError{Op: "rank", Reason: "empty partition column name"}
		}
		if seen[p] {
			return nil, &EmptyInputError{Op: "rank", Reason: "partition column " + p + " listed twice"}
		}
		seen[p] = true
	}
	part, err := d.indices("rank", w.PartitionBy)
	if err != nil {
		return nil, err
	}
	keys, err := d.bindKeys("rank", w.OrderBy)
	if err != nil {
		return nil, err
	}

	ranks := make([]any, len(d.rows))
	for _, rows := range d.partitions(part) {
		sort.SliceStable(rows, func(i, j int) bool {
			return compareRows(d.rows[rows[i]], d.rows[rows[j]], keys) < 0
		})
		rank := int64(1)
		for i, r := range rows {
			if i > 0 {
				switch mode {
				case RowNumber:
					rank++
				case DenseRank:
					if compareRows(d.rows[rows[i-1]], d.rows[r], keys) != 0 {
						rank++
					}
				}
			}
			ranks[r] = rank
		}
	}
	return d.withValues(Column{Name: out, Kind: KindInt}, ranks), nil
}

// partitions returns row indexes grouped by the values at cols, partitions
// in order of first occurrence. No cols means a single partition.
func (d *Dataset) partitions(cols []int) [][]int {
	var order []string
	groups := make(map[string][]int)
	for i, row := range d.rows {
		k := groupKey(row, cols)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	out := make([][]int, len(order))
	for i, k := range order {
		out[i] = groups[k]
	}
	return out
}

// TopNWithTies keeps the rows whose dense rank by orderBy is at most n, so
// rows tied at the boundary are all kept and more than n rows may come back.
// The rank is kept in RankColumn.
func TopNWithTies(d *Dataset, n int, orderBy ...SortKey) (*Dataset, error) {
	if n < 1 {
		return nil, &ValueError{Op: "top_n", Row: -1, Reason: "n must be at least 1"}
	}
	ranked, err := d.WithRank(RankColumn, DenseRank, Window{OrderBy: orderBy})
	if err != nil {
		return nil, err
	}
	return ranked.Filter(Le(Col(RankColumn), Lit(int64(n))))
}

// Leaders keeps exactly one row per partitionBy tuple: the first by
// orderBy, ties going to the earlier row. The rank is kept in RankColumn.
func Leaders(d *Dataset, partitionBy []string, orderBy ...SortKey) (*Dataset, error) {
	ranked, err := d.WithRank(RankColumn, RowNumber, Window{PartitionBy: partitionBy, OrderBy: orderBy})
	if err != nil {
		return nil, err
	}
	return ranked.Filter(Eq(Col(RankColumn), Lit(int64(1))))
}
