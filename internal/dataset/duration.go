package dataset

import "time"

// DurationHours adds float column out holding, per row, the hours elapsed
// from start to coalesce(primary, fallback). Fractional hours are kept;
// callers round after summing.
//
// A row whose primary and fallback are both null, or whose start is null,
// fails the whole operation with a ValueError.
func DurationHours(d *Dataset, primary, fallback, start, out string) (*Dataset, error) {
	var idx [3]int
	for i, name := range []string{primary, fallback, start} {
		c, ok := d.index[name]
		if !ok {
			return nil, &SchemaError{Op: "duration", Column: name, Reason: "unknown column"}
		}
		if d.cols[c].Kind != KindTime {
			return nil, &SchemaError{Op: "duration", Column: name, Reason: "kind " + d.cols[c].Kind.String() + " is not time"}
		}
		idx[i] = c
	}
	if out == "" {
		return nil, &SchemaError{Op: "duration", Column: out, Reason: "empty column name"}
	}

	vals := make([]any, len(d.rows))
	for r, row := range d.rows {
		end := row[idx[0]]
		if end == nil {
			end = row[idx[1]]
		}
		if end == nil {
			return nil, &ValueError{Op: "duration", Row: r, Column: primary, Reason: "both " + primary + " and " + fallback + " are null"}
		}
		begin := row[idx[2]]
		if begin == nil {
			return nil, &ValueError{Op: "duration", Row: r, Column: start, Reason: "start timestamp is null"}
		}
		vals[r] = end.(time.Time).Sub(begin.(time.Time)).Hours()
	}
	return d.withValues(Column{Name: out, Kind: KindFloat}, vals), nil
}
