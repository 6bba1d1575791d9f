// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// New returns a logger writing to w in the given format (logfmt or json),
// dropping entries below lvl (debug, info, warn, error).
func New(w io.Writer, format, lvl string) (log.Logger, error) {
	var logger log.Logger
	switch strings.ToLower(format) {
	case "", "logfmt":
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	case "json":
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	opt, err := levelOption(lvl)
	if err != nil {
		return nil, err
	}
	logger = level.NewFilter(logger, opt)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.Caller(3)), nil
}

func levelOption(lvl string) (level.Option, error) {
	switch strings.ToLower(lvl) {
	case "debug":
		return level.AllowDebug(), nil
	case "", "info":
		return level.AllowInfo(), nil
	case "warn", "warning":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	}
	return nil, fmt.Errorf("unknown log level %q", lvl)
}
