package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/volunteerconnect/event-registration/internal/config"
)

// cachedResponse is the value stored under a cache key.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

func encodeResponse(r cachedResponse) ([]byte, error) { return json.Marshal(r) }

func decodeResponse(bs []byte) (cachedResponse, bool) {
	var r cachedResponse
	if err := json.Unmarshal(bs, &r); err != nil || r.Status == 0 {
		return cachedResponse{}, false
	}
	return r, true
}

// bodyRecorder copies up to limit bytes of the response while forwarding
// everything to the client.
type bodyRecorder struct {
	http.ResponseWriter
	status  int
	body    bytes.Buffer
	written int64
	limit   int64
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if r.limit <= 0 || r.written+int64(len(b)) <= r.limit {
		r.body.Write(b)
	}
	r.written += int64(len(b))
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) complete() bool { return r.limit <= 0 || r.written <= r.limit }

// cacheKeyFrom hashes the parts of the request selected by cfg.KeyStrategy.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	req := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route":
		parts = []string{"method", req.Method, "route", c.Path()}
	case "method_route_query":
		parts = []string{"method", req.Method, "route", c.Path(), "q", req.URL.RawQuery}
	default: // route_query
		parts = []string{"route", c.Path(), "q", req.URL.RawQuery}
	}
	// path params are part of the key; /v1/events/:id must not share one entry
	for _, v := range c.ParamValues() {
		parts = append(parts, "p", v)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:16])
}

// NewRedisCache serves repeated anonymous reads of the configured methods
// from Redis for cfg.TTL.  Authenticated requests and requests sending
// Cache-Control: no-cache bypass the cache.  It is a no-op when disabled or
// when rdb is nil.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	methods := cfg.MethodSet()
	limit := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !methods[req.Method] || req.Header.Get(echo.HeaderAuthorization) != "" ||
				strings.Contains(req.Header.Get("Cache-Control"), "no-cache") {
				return next(c)
			}

			ctx := req.Context()
			key := cacheKeyFrom(cfg, c)
			res := c.Response()

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if hit, ok := decodeResponse(bs); ok {
					for k, vals := range hit.Header {
						res.Header()[k] = vals
					}
					res.Header().Set("X-Cache", "HIT")
					res.WriteHeader(hit.Status)
					_, err := res.Write(hit.Body)
					return err
				}
			} else if err != redis.Nil {
				log.WarnContext(ctx, "cache: lookup failed", "key", key, "error", err)
			}

			rec := &bodyRecorder{ResponseWriter: res.Writer, status: http.StatusOK, limit: limit}
			res.Writer = rec
			res.Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || !rec.complete() {
				return nil
			}

			hdr := res.Header().Clone()
			hdr.Del("X-Cache")
			hdr.Del(echo.HeaderContentLength)
			hdr.Del(echo.HeaderXRequestID)
			payload, err := encodeResponse(cachedResponse{Status: rec.status, Header: hdr, Body: rec.body.Bytes()})
			if err == nil {
				err = rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err()
			}
			if err != nil {
				log.WarnContext(ctx, "cache: store failed", "key", key, "error", err)
			}
			return nil
		}
	}
}
