package queue

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-analytics/internal/dataset"
)

func TestNewAnalysisCompletedEvent(t *testing.T) {
	d := dataset.MustNew([]dataset.Column{
		{Name: "name", Kind: dataset.KindString},
		{Name: "films", Kind: dataset.KindInt},
	}, [][]any{{"Sports", 74}, {"Foreign", 73}})

	ev := NewAnalysisCompletedEvent("films_per_category", d, nil, 1500*time.Microsecond)
	assert.Equal(t, StatusOK, ev.Status)
	assert.Equal(t, 2, ev.Rows)
	assert.Equal(t, []string{"name", "films"}, ev.Columns)
	assert.Equal(t, int64(1), ev.ElapsedMs)
	_, err := time.Parse(time.RFC3339, ev.CompletedAt)
	assert.NoError(t, err)

	ev = NewAnalysisCompletedEvent("top_revenue_category", nil, errors.New("payment unavailable"), 0)
	assert.Equal(t, StatusFailed, ev.Status)
	assert.Equal(t, "payment unavailable", ev.Error)
	assert.Zero(t, ev.Rows)
}

func TestHandleMessageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "analysis.log")

	ok, err := json.Marshal(AnalysisCompletedEvent{
		Analysis: "films_per_category", Status: StatusOK, Rows: 16,
		Columns: []string{"name", "films"}, ElapsedMs: 4, CompletedAt: "2026-10-18T09:00:00Z",
	})
	require.NoError(t, err)
	failed, err := json.Marshal(AnalysisCompletedEvent{
		Analysis: "top_revenue_category", Status: StatusFailed,
		Error: "payment unavailable", CompletedAt: "2026-10-18T09:00:01Z",
	})
	require.NoError(t, err)

	require.NoError(t, handleMessage(ok, path))
	require.NoError(t, handleMessage(failed, path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2026-10-18T09:00:00Z] Analysis completed | analysis=films_per_category | rows=16 | columns=[name,films] | elapsed=4ms", lines[0])
	assert.Equal(t, `[2026-10-18T09:00:01Z] Analysis failed | analysis=top_revenue_category | elapsed=0ms | error="payment unavailable"`, lines[1])
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.log")
	assert.Error(t, handleMessage([]byte("{"), path))
	assert.Error(t, handleMessage([]byte(`{"status":"ok"}`), path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
