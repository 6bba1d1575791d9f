package dataset

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cities() *Dataset {
	return MustNew(
		[]Column{{Name: "city_id", Kind: KindInt}, {Name: "city", Kind: KindString}},
		[][]any{
			{1, "Atlanta"},
			{2, "atlanta"},
			{3, "Santa-Fe"},
			{4, "Boston"},
			{5, nil},
		},
	)
}

func TestNewNormalisesAndValidates(t *testing.T) {
	d, err := New([]Column{{Name: "n", Kind: KindInt}, {Name: "f", Kind: KindFloat}}, [][]any{{int32(7), float32(1.5)}})
	require.NoError(t, err)
	v, err := d.Value(0, "n")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
	v, err = d.Value(0, "f")
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	_, err = New([]Column{{Name: "n", Kind: KindInt}}, [][]any{{"x"}})
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "n", se.Column)

	_, err = New([]Column{{Name: "n", Kind: KindInt}, {Name: "n", Kind: KindInt}}, nil)
	require.ErrorAs(t, err, &se)

	_, err = New([]Column{{Name: "n", Kind: KindInt}}, [][]any{{1, 2}})
	var ve *ValueError
	require.ErrorAs(t, err, &ve)
}

func TestNewCopiesInput(t *testing.T) {
	rows := [][]any{{int64(1)}}
	d := MustNew([]Column{{Name: "n", Kind: KindInt}}, rows)
	rows[0][0] = int64(99)
	v, _ := d.Value(0, "n")
	assert.Equal(t, int64(1), v)
}

func TestSelectUnknownColumn(t *testing.T) {
	_, err := cities().Select("city", "population")
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "population", se.Column)
}

func TestSelectProjects(t *testing.T) {
	d, err := cities().Select("city")
	require.NoError(t, err)
	assert.Equal(t, []string{"city"}, d.ColumnNames())
	assert.Equal(t, 5, d.Len())
}

func TestCityNameFilter(t *testing.T) {
	d, err := cities().Filter(Or(HasPrefix(Col("city"), "A"), Contains(Col("city"), "-")))
	require.NoError(t, err)
	var got []any
	for i := 0; i < d.Len(); i++ {
		v, _ := d.Value(i, "city")
		got = append(got, v)
	}
	assert.Equal(t, []any{"Atlanta", "Santa-Fe"}, got)
}

func TestFilterRequiresBool(t *testing.T) {
	_, err := cities().Filter(Col("city"))
	var se *SchemaError
	require.ErrorAs(t, err, &se)

	_, err = cities().Filter(IsNull(Col("nope")))
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "nope", se.Column)
}

func TestNullPropagation(t *testing.T) {
	d := MustNew(
		[]Column{{Name: "a", Kind: KindInt}, {Name: "b", Kind: KindInt}},
		[][]any{{5, 2}, {nil, 2}, {3, nil}},
	)
	out, err := d.WithColumn("diff", Sub(Col("a"), Col("b")))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(5), int64(2), int64(3)}, {nil, int64(2), nil}, {int64(3), nil, nil}}, out.Rows())
	c, _ := out.Column("diff")
	assert.Equal(t, KindInt, c.Kind)

	eq, err := d.Filter(Eq(Col("a"), Lit(5)))
	require.NoError(t, err)
	assert.Equal(t, 1, eq.Len())

	// The input is untouched.
	assert.Equal(t, []string{"a", "b"}, d.ColumnNames())
}

func TestWithColumnReplacesInPlace(t *testing.T) {
	d := MustNew([]Column{{Name: "x", Kind: KindFloat}, {Name: "y", Kind: KindInt}}, [][]any{{1.234, 1}})
	out, err := d.WithColumn("x", Round(Col("x"), 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, out.ColumnNames())
	assert.Equal(t, []any{1.23, int64(1)}, out.Row(0))
}

func TestOrderByStableWithNulls(t *testing.T) {
	d := MustNew(
		[]Column{{Name: "k", Kind: KindString}, {Name: "v", Kind: KindInt}},
		[][]any{{"a", 2}, {"b", nil}, {"c", 3}, {"d", 2}},
	)
	desc, err := d.OrderBy(Desc("v"))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"c", int64(3)}, {"a", int64(2)}, {"d", int64(2)}, {"b", nil}}, desc.Rows())

	asc, err := d.OrderBy(Asc("v"))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"b", nil}, {"a", int64(2)}, {"d", int64(2)}, {"c", int64(3)}}, asc.Rows())

	_, err = d.OrderBy(Desc("missing"))
	var se *SchemaError
	require.ErrorAs(t, err, &se)
}

func TestLimit(t *testing.T) {
	d := cities()
	assert.Equal(t, 2, d.Limit(2).Len())
	assert.Equal(t, 5, d.Limit(10).Len())
	assert.Equal(t, 0, d.Limit(-1).Len())
}

func TestEqual(t *testing.T) {
	ts := time.Date(2005, 5, 24, 22, 53, 30, 0, time.UTC)
	a := MustNew([]Column{{Name: "t", Kind: KindTime}}, [][]any{{ts}})
	b := MustNew([]Column{{Name: "t", Kind: KindTime}}, [][]any{{ts.In(time.FixedZone("x", 3600))}})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(cities()))
}

func TestMarshalJSON(t *testing.T) {
	d := MustNew([]Column{{Name: "name", Kind: KindString}, {Name: "films", Kind: KindInt}}, [][]any{{"Sports", 74}})
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":[{"name":"name","type":"string"},{"name":"films","type":"int"}],"rows":[["Sports",74]]}`, string(b))

	empty := MustNew([]Column{{Name: "title", Kind: KindString}}, nil)
	b, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":[{"name":"title","type":"string"}],"rows":[]}`, string(b))
}
