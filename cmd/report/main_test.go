package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-analytics/internal/analysis"
	"github.com/iliyamo/rental-analytics/internal/dataset"
	"github.com/iliyamo/rental-analytics/internal/model"
	"github.com/iliyamo/rental-analytics/internal/repository"
)

func TestPrintResults(t *testing.T) {
	d := dataset.MustNew([]dataset.Column{
		{Name: "name", Kind: dataset.KindString},
		{Name: "money_spent", Kind: dataset.KindFloat},
	}, [][]any{{"Sports", 5314.21}, {"Sci-Fi", nil}})

	var buf bytes.Buffer
	failed := printResults(&buf, []analysis.Result{
		{Name: "top_revenue_category", Data: d, Elapsed: 12 * time.Millisecond},
		{Name: "films_per_category", Err: errors.New("boom")},
	})

	assert.Equal(t, 1, failed)
	assert.Equal(t, "== top_revenue_category (12ms)\n"+
		"name    money_spent\n"+
		"Sports  5314.21\n"+
		"Sci-Fi  NULL\n"+
		"(2 rows)\n"+
		"\n"+
		"== films_per_category (0s)\n"+
		"error: boom\n", buf.String())
}

func TestRunOnly(t *testing.T) {
	src := repository.NewMemorySource(map[model.Entity]*dataset.Dataset{
		model.Category:     model.Empty(model.Category),
		model.FilmCategory: model.Empty(model.FilmCategory),
	})
	orch := analysis.New(src, analysis.Config{}, nil)

	results, err := run(context.Background(), orch, "films_per_category, top_revenue_category")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)

	_, err = run(context.Background(), orch, "nope")
	assert.ErrorContains(t, err, `unknown analysis "nope"`)
}
