package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountSkipsNulls(t *testing.T) {
	d := MustNew(
		[]Column{{Name: "actor_id", Kind: KindInt}, {Name: "rental_date", Kind: KindTime}},
		[][]any{
			{1, time.Unix(0, 0)},
			{1, nil},
			{1, time.Unix(60, 0)},
			{2, nil},
		},
	)
	out, err := d.GroupBy("actor_id").Agg(Count("rental_date").As("rents"))
	require.NoError(t, err)
	assert.Equal(t, []string{"actor_id", "rents"}, out.ColumnNames())
	assert.Equal(t, [][]any{{int64(1), int64(2)}, {int64(2), int64(0)}}, out.Rows())
}

func TestSumKindsAndNulls(t *testing.T) {
	d := MustNew(
		[]Column{{Name: "city", Kind: KindString}, {Name: "active", Kind: KindInt}, {Name: "amount", Kind: KindFloat}},
		[][]any{
			{"Aden", 1, 2.5},
			{"Aden", 0, 0.25},
			{"Abha", nil, nil},
		},
	)
	out, err := d.GroupBy("city").Agg(
		Sum("active").As("active"),
		Sum("amount"),
		Sum("active").OrZero().As("active_or_zero"),
	)
	require.NoError(t, err)
	assert.Equal(t, []Column{
		{Name: "city", Kind: KindString},
		{Name: "active", Kind: KindInt},
		{Name: "sum(amount)", Kind: KindFloat},
		{Name: "active_or_zero", Kind: KindInt},
	}, out.Columns())
	assert.Equal(t, [][]any{
		{"Aden", int64(1), 2.75, int64(1)},
		{"Abha", nil, nil, int64(0)},
	}, out.Rows())
}

func TestGroupByNullKeyAndMultipleKeys(t *testing.T) {
	d := MustNew(
		[]Column{{Name: "a", Kind: KindString}, {Name: "b", Kind: KindInt}, {Name: "v", Kind: KindInt}},
		[][]any{{"x", 1, 1}, {nil, 1, 1}, {"x", 1, 1}, {"x", 2, 1}, {nil, 1, 1}},
	)
	out, err := d.GroupBy("a", "b").Agg(Count("v").As("n"))
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"x", int64(1), int64(2)},
		{nil, int64(1), int64(2)},
		{"x", int64(2), int64(1)},
	}, out.Rows())
}

func TestAggErrors(t *testing.T) {
	d := cities()

	_, err := d.GroupBy().Agg(Count("city"))
	var ee *EmptyInputError
	require.ErrorAs(t, err, &ee)

	var se *SchemaError
	_, err = d.GroupBy("country").Agg(Count("city"))
	require.ErrorAs(t, err, &se)

	_, err = d.GroupBy("city").Agg(Sum("city"))
	require.ErrorAs(t, err, &se)

	_, err = d.GroupBy("city").Agg(Count("missing"))
	require.ErrorAs(t, err, &se)

	_, err = d.GroupBy("city").Agg(Count("city_id").As("city"))
	require.ErrorAs(t, err, &se)
}

func TestNonActiveIdentity(t *testing.T) {
	d := MustNew(
		[]Column{{Name: "city", Kind: KindString}, {Name: "active", Kind: KindInt}},
		[][]any{{"Aden", 1}, {"Aden", 0}, {"Aden", 0}, {"Abha", 1}},
	)
	g, err := d.GroupBy("city").Agg(Sum("active").As("active"), Count("active").As("total_users"))
	require.NoError(t, err)
	g, err = g.WithColumn("non_active", Sub(Col("total_users"), Col("active")))
	require.NoError(t, err)
	for i := 0; i < g.Len(); i++ {
		active, _ := g.Value(i, "active")
		total, _ := g.Value(i, "total_users")
		non, _ := g.Value(i, "non_active")
		assert.Equal(t, total, non.(int64)+active.(int64))
		assert.GreaterOrEqual(t, non.(int64), int64(0))
	}
}
