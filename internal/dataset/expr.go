package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Expr is a column expression. Expressions are bound against a dataset's
// schema before any row is evaluated, so a reference to an unknown column
// fails with a SchemaError up front.
type Expr interface {
	bind(d *Dataset) (bound, error)
}

type bound struct {
	name string // column name or a rendering of the expression, for errors
	kind Kind
	eval func(row []any) any
}

type exprFunc func(d *Dataset) (bound, error)

func (f exprFunc) bind(d *Dataset) (bound, error) { return f(d) }

// Col references a column by name.
func Col(name string) Expr {
	return exprFunc(func(d *Dataset) (bound, error) {
		i, ok := d.index[name]
		if !ok {
			return bound{}, &SchemaError{Op: "expr", Column: name, Reason: "unknown column"}
		}
		return bound{name: name, kind: d.cols[i].Kind, eval: func(row []any) any { return row[i] }}, nil
	})
}

// Lit is a constant. Its kind is taken from the Go type of v.
func Lit(v any) Expr {
	return exprFunc(func(*Dataset) (bound, error) {
		k, nv, ok := kindOf(v)
		if !ok {
			return bound{}, &SchemaError{Op: "expr", Column: fmt.Sprint(v), Reason: fmt.Sprintf("unsupported literal type %T", v)}
		}
		return bound{name: fmt.Sprint(nv), kind: k, eval: func([]any) any { return nv }}, nil
	})
}

func kindOf(v any) (Kind, any, bool) {
	if v == nil {
		return 0, nil, false
	}
	for _, k := range []Kind{KindInt, KindFloat, KindString, KindBool, KindTime} {
		if nv, ok := normalize(v, k); ok {
			return k, nv, true
		}
	}
	return 0, nil, false
}

// Sub is a - b. Both operands must be numeric; the result is int when both
// are int and float otherwise.
func Sub(a, b Expr) Expr {
	return exprFunc(func(d *Dataset) (bound, error) {
		l, r, err := bindPair(d, a, b)
		if err != nil {
			return bound{}, err
		}
		for _, x := range []bound{l, r} {
			if !x.kind.numeric() {
				return bound{}, &SchemaError{Op: "sub", Column: x.name, Reason: "not numeric"}
			}
		}
		name := l.name + " - " + r.name
		if l.kind == KindInt && r.kind == KindInt {
			return bound{name: name, kind: KindInt, eval: func(row []any) any {
				x, y := l.eval(row), r.eval(row)
				if x == nil || y == nil {
					return nil
				}
				return x.(int64) - y.(int64)
			}}, nil
		}
		return bound{name: name, kind: KindFloat, eval: func(row []any) any {
			x, y := l.eval(row), r.eval(row)
			if x == nil || y == nil {
				return nil
			}
			return toFloat(x) - toFloat(y)
		}}, nil
	})
}

// Eq is a == b, null when either side is null.
func Eq(a, b Expr) Expr { return comparison("=", a, b, func(c int) bool { return c == 0 }) }

// Lt is a < b, null when either side is null.
func Lt(a, b Expr) Expr { return comparison("<", a, b, func(c int) bool { return c < 0 }) }

// Le is a <= b, null when either side is null.
func Le(a, b Expr) Expr { return comparison("<=", a, b, func(c int) bool { return c <= 0 }) }

func comparison(op string, a, b Expr, test func(int) bool) Expr {
	return exprFunc(func(d *Dataset) (bound, error) {
		l, r, err := bindPair(d, a, b)
		if err != nil {
			return bound{}, err
		}
		if l.kind != r.kind && !(l.kind.numeric() && r.kind.numeric()) {
			return bound{}, &SchemaError{Op: op, Column: l.name, Reason: fmt.Sprintf("cannot compare %s with %s", l.kind, r.kind)}
		}
		return bound{name: l.name + " " + op + " " + r.name, kind: KindBool, eval: func(row []any) any {
			x, y := l.eval(row), r.eval(row)
			if x == nil || y == nil {
				return nil
			}
			return test(compare(x, y))
		}}, nil
	})
}

// IsNull is true when e is null.
func IsNull(e Expr) Expr {
	return exprFunc(func(d *Dataset) (bound, error) {
		x, err := e.bind(d)
		if err != nil {
			return bound{}, err
		}
		return bound{name: x.name + " IS NULL", kind: KindBool, eval: func(row []any) any { return x.eval(row) == nil }}, nil
	})
}

// Or is the three-valued logical disjunction of two bool expressions.
func Or(a, b Expr) Expr {
	return logical("OR", a, b, func(x, y any) any {
		if x == true || y == true {
			return true
		}
		if x == nil || y == nil {
			return nil
		}
		return false
	})
}

// And is the three-valued logical conjunction of two bool expressions.
func And(a, b Expr) Expr {
	return logical("AND", a, b, func(x, y any) any {
		if x == false || y == false {
			return false
		}
		if x == nil || y == nil {
			return nil
		}
		return true
	})
}

func logical(op string, a, b Expr, fn func(x, y any) any) Expr {
	return exprFunc(func(d *Dataset) (bound, error) {
		l, r, err := bindPair(d, a, b)
		if err != nil {
			return bound{}, err
		}
		for _, x := range []bound{l, r} {
			if x.kind != KindBool {
				return bound{}, &SchemaError{Op: strings.ToLower(op), Column: x.name, Reason: "not bool"}
			}
		}
		return bound{name: l.name + " " + op + " " + r.name, kind: KindBool, eval: func(row []any) any {
			return fn(l.eval(row), r.eval(row))
		}}, nil
	})
}

// HasPrefix matches string values starting with prefix, case-sensitively,
// like SQL LIKE 'prefix%'.
func HasPrefix(e Expr, prefix string) Expr {
	return stringTest("has_prefix", e, func(s string) bool { return strings.HasPrefix(s, prefix) })
}

// Contains matches string values containing sub, like SQL LIKE '%sub%'.
func Contains(e Expr, sub string) Expr {
	return stringTest("contains", e, func(s string) bool { return strings.Contains(s, sub) })
}

func stringTest(op string, e Expr, fn func(string) bool) Expr {
	return exprFunc(func(d *Dataset) (bound, error) {
		x, err := e.bind(d)
		if err != nil {
			return bound{}, err
		}
		if x.kind != KindString {
			return bound{}, &SchemaError{Op: op, Column: x.name, Reason: "not string"}
		}
		return bound{name: op + "(" + x.name + ")", kind: KindBool, eval: func(row []any) any {
			v := x.eval(row)
			if v == nil {
				return nil
			}
			return fn(v.(string))
		}}, nil
	})
}

// Round rounds a numeric expression half away from zero to the given
// number of decimal places. The result is always float.
func Round(e Expr, places int) Expr {
	return exprFunc(func(d *Dataset) (bound, error) {
		x, err := e.bind(d)
		if err != nil {
			return bound{}, err
		}
		if !x.kind.numeric() {
			return bound{}, &SchemaError{Op: "round", Column: x.name, Reason: "not numeric"}
		}
		scale := math.Pow10(places)
		return bound{name: "round(" + x.name + ")", kind: KindFloat, eval: func(row []any) any {
			v := x.eval(row)
			if v == nil {
				return nil
			}
			return math.Round(toFloat(v)*scale) / scale
		}}, nil
	})
}

func bindPair(d *Dataset, a, b Expr) (bound, bound, error) {
	l, err := a.bind(d)
	if err != nil {
		return bound{}, bound{}, err
	}
	r, err := b.bind(d)
	if err != nil {
		return bound{}, bound{}, err
	}
	return l, r, nil
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case float64:
		return t
	}
	return math.NaN()
}

// compare orders two non-null values of compatible kinds.
func compare(a, b any) int {
	switch x := a.(type) {
	case int64:
		if y, ok := b.(int64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
		return compareFloat(float64(x), toFloat(b))
	case float64:
		return compareFloat(x, toFloat(b))
	case string:
		return strings.Compare(x, b.(string))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case time.Time:
		return x.Compare(b.(time.Time))
	}
	panic(fmt.Sprintf("dataset: cannot compare %T", a))
}

func compareFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

// appendKey appends an unambiguous encoding of v to buf. Values of different
// kinds never encode the same.
func appendKey(buf []byte, v any) []byte {
	switch t := v.(type) {
	case nil:
		return append(buf, 'n', 0)
	case int64:
		buf = append(buf, 'i')
		buf = strconv.AppendInt(buf, t, 10)
	case float64:
		buf = append(buf, 'f')
		buf = strconv.AppendFloat(buf, t, 'g', -1, 64)
	case string:
		buf = append(buf, 's')
		buf = strconv.AppendInt(buf, int64(len(t)), 10)
		buf = append(buf, ':')
		buf = append(buf, t...)
	case bool:
		buf = append(buf, 'b')
		buf = strconv.AppendBool(buf, t)
	case time.Time:
		buf = append(buf, 't')
		buf = strconv.AppendInt(buf, t.UnixNano(), 10)
	}
	return append(buf, 0)
}

// tupleKey encodes the values at positions cols. ok is false when any of
// them is null.
func tupleKey(row []any, cols []int) (key string, ok bool) {
	var buf []byte
	for _, c := range cols {
		if row[c] == nil {
			return "", false
		}
		buf = appendKey(buf, row[c])
	}
	return string(buf), true
}

// groupKey encodes the values at positions cols, nulls included.
func groupKey(row []any, cols []int) string {
	var buf []byte
	for _, c := range cols {
		buf = appendKey(buf, row[c])
	}
	return string(buf)
}
