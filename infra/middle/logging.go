package middle

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/infra/opensearch"
)

// RequestLoggingMiddleware logs one line per checkout request. Query strings
// are sanitized since callbacks may carry identifiers.
func RequestLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			ctx := logger.LogContext{
				SessionID: GetSessionID(r.Context()),
				RequestID: middleware.GetReqID(r.Context()),
				Fields: map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"query":       opensearch.SanitizeForLog(r.URL.RawQuery),
					"status":      status,
					"duration_ms": time.Since(start).Milliseconds(),
					"client_ip":   GetClientIP(r),
				},
			}

			switch {
			case status >= 500:
				logger.Warn("Request failed", ctx)
			case status >= 400:
				logger.Info("Request rejected", ctx)
			default:
				logger.Debug("Request served", ctx)
			}
		})
	}
}
