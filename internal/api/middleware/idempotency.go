package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/careerforge/careerforge/internal/domain"
	"github.com/careerforge/careerforge/internal/logger"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader carries the client-generated dedup token. Requests
// without it proceed normally with no deduplication.
const IdempotencyKeyHeader = "Idempotency-Key"

// captureWriter tees the response body so it can be recorded after the
// handler has written it. The wrapped writer still flushes to the client
// first; capture never delays the client-visible response.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyRepo is the persistence boundary the middleware needs.
type IdempotencyRepo interface {
	Lookup(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	Record(ctx context.Context, rec *domain.IdempotencyRecord) error
}

// Idempotency deduplicates mutating requests carrying an Idempotency-Key
// header. On a hit the recorded status, headers, and body are replayed
// verbatim and the handler never runs. On a miss the handler runs and its
// response is recorded, but only when the final status is 2xx: failed
// attempts stay uncached so a retry re-executes the handler. Recording is
// best-effort; a persistence failure is logged and swallowed, never surfaced.
func Idempotency(repo IdempotencyRepo, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "POST", "PUT", "PATCH":
		default:
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		if rec, err := repo.Lookup(ctx, key); err == nil {
			var headers map[string]string
			if rec.Headers != "" {
				_ = json.Unmarshal([]byte(rec.Headers), &headers)
			}
			for k, v := range headers {
				c.Header(k, v)
			}
			logger.CtxInfo(ctx, "Replaying idempotent response: key=%s, status=%d", key, rec.StatusCode)
			c.Data(rec.StatusCode, headers["Content-Type"], rec.Body)
			c.Abort()
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if status < 200 || status > 299 {
			return
		}

		headers := map[string]string{}
		for name, values := range writer.Header() {
			headers[name] = strings.Join(values, ", ")
		}
		headerJSON, _ := json.Marshal(headers)

		rec := &domain.IdempotencyRecord{
			Key:        key,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			StatusCode: status,
			Headers:    string(headerJSON),
			Body:       append([]byte(nil), writer.body.Bytes()...),
			ExpiresAt:  time.Now().Add(ttl),
		}
		if err := repo.Record(ctx, rec); err != nil {
			logger.CtxWarn(ctx, "Failed to persist idempotency record for key %s: %v", key, err)
		}
	}
}
