package middleware

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestLogger logs one line per request through logger.
func RequestLogger(logger log.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			l := level.Info(logger)
			if v.Status >= 500 {
				l = level.Warn(logger)
			}
			kvs := []any{"msg", "request", "method", v.Method, "uri", v.URI, "status", v.Status,
				"latency", v.Latency, "remote_ip", v.RemoteIP, "client", ClientID(c)}
			if v.Error != nil {
				kvs = append(kvs, "err", v.Error)
			}
			return l.Log(kvs...)
		},
	})
}
