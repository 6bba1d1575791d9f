package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "logfmt", "warn")
	require.NoError(t, err)

	level.Info(logger).Log("msg", "loaded table")
	level.Warn(logger).Log("msg", "analysis failed", "analysis", "films_per_category")

	out := buf.String()
	assert.NotContains(t, out, "loaded table")
	assert.Contains(t, out, `msg="analysis failed"`)
	assert.Contains(t, out, "level=warn")
	assert.Contains(t, out, "caller=logging_test.go")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "json", "debug")
	require.NoError(t, err)

	level.Debug(logger).Log("msg", "loaded table", "rows", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded table", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Contains(t, entry, "ts")
}

func TestUnknownSettings(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", "info")
	assert.Error(t, err)
	_, err = New(&bytes.Buffer{}, "logfmt", "loud")
	assert.Error(t, err)
}
