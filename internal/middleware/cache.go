package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/rental-analytics/internal/config"
)

// captureWriter copies the response body, up to limit bytes, while writing
// it through to the client.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.truncated = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// cachedResponse is what the cache stores per key.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	parts := []string{"route", c.Path(), "params", strings.Join(c.ParamValues(), "/")}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
	case "route_query_user":
		parts = append(parts, "q", r.URL.RawQuery, "user", ClientID(c))
	default: // route_query
		parts = append(parts, "q", r.URL.RawQuery)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// NewRedisCache caches successful responses of the configured methods in
// Redis and replays them with X-Cache: HIT. Failed responses and bodies
// over MaxBodyBytes are never stored. Without Redis it passes requests
// through.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, logger log.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if err := json.Unmarshal(bs, &hit); err == nil {
					h := c.Response().Header()
					for k, vals := range hit.Header {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						h[k] = vals
					}
					h.Set("X-Cache", "HIT")
					return c.Blob(hit.Status, h.Get(echo.HeaderContentType), hit.Body)
				}
			} else if err != redis.Nil {
				level.Warn(logger).Log("msg", "cache read failed", "key", key, "err", err)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated {
				return nil
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := json.Marshal(cachedResponse{Status: cw.status, Header: hdr, Body: cw.buf.Bytes()})
			if err != nil {
				return nil
			}
			// The request context may already be cancelled once the client has
			// its response.
			if err := rdb.Set(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err(); err != nil {
				level.Warn(logger).Log("msg", "cache write failed", "key", key, "err", err)
			}
			return nil
		}
	}
}
