package middleware

import (
	"net/http"
	"time"

	"zoi/sentinel/pkg/telemetry/tracing"
)

// RouteRecorder receives one observation per routed request.
type RouteRecorder interface {
	RecordHTTPRequest(route string, code int, d time.Duration)
}

// Route instruments a handler registered under pattern. Unrouted requests
// never reach it, which keeps the route label bounded. A nil rec only names
// the span.
func Route(pattern string, rec RouteRecorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracing.SetRoute(r.Context(), pattern)

		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rec != nil {
			rec.RecordHTTPRequest(pattern, rw.statusCode, time.Since(start))
		}
	})
}
