package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/turnosmed/api-turnos/internal/config"
)

// captureWriter tees the response body so a successful reply can be
// stored after it has been sent to the client.
type captureWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	size     int64
	limit    int64
	overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.size += int64(len(b))
	if !cw.overflow {
		if cw.limit > 0 && cw.size > cw.limit {
			// Oversized bodies are never cached.
			cw.overflow = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// availabilityKey hashes route and query into a stable Redis key.  The
// response depends only on servicioId and fecha, never on the caller, so
// the identity is deliberately left out of the key.
func availabilityKey(prefix string, c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(c.Path() + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// NewAvailabilityCache caches successful availability responses in
// Redis for a short TTL to absorb polling bursts.  Only GET 200 bodies
// are stored; errors and writes pass straight through.  The cached body
// is JSON produced by the handler, so it is replayed verbatim.
func NewAvailabilityCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			ctx := c.Request().Context()
			key := availabilityKey(cfg.Prefix, c)

			if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
				c.Response().Header().Set("X-Cache", "HIT")
				c.Response().WriteHeader(http.StatusOK)
				_, _ = c.Response().Write(body)
				return nil
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			if cw.status == http.StatusOK && !cw.overflow && cw.buf.Len() > 0 {
				// The request context may be done once the response is
				// flushed; store with a fresh context.
				_ = rdb.SetEx(context.Background(), key, cw.buf.Bytes(), cfg.TTL).Err()
			}
			return nil
		}
	}
}
