package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-analytics/internal/dataset"
)

func TestEveryEntityHasSchema(t *testing.T) {
	for _, e := range Entities {
		cols, ok := Schema(e)
		require.True(t, ok, e)
		assert.NotEmpty(t, cols, e)
		assert.True(t, e.Valid())
		assert.NoError(t, Check(e, Empty(e)))
	}
	assert.False(t, Entity("staff").Valid())
}

func TestCheckRejectsMissingColumn(t *testing.T) {
	d := dataset.MustNew([]dataset.Column{{Name: ColCityID, Kind: dataset.KindInt}}, nil)
	err := Check(City, d)
	var se *dataset.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ColCity, se.Column)
}

func TestCheckRejectsWrongKind(t *testing.T) {
	d := dataset.MustNew([]dataset.Column{
		{Name: ColCityID, Kind: dataset.KindString},
		{Name: ColCity, Kind: dataset.KindString},
	}, nil)
	err := Check(City, d)
	var se *dataset.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ColCityID, se.Column)
}

func TestSchemaReturnsCopy(t *testing.T) {
	cols, _ := Schema(Film)
	cols[0].Name = "changed"
	again, _ := Schema(Film)
	assert.Equal(t, ColFilmID, again[0].Name)
}
