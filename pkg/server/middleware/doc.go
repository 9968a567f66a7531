// Package middleware provides the HTTP middleware chain of the sentinel API:
// request ids, structured request logging, panic recovery, and per-route
// instrumentation.
//
// Middleware are plain func(http.Handler) http.Handler values, applied
// outermost last:
//
//	handler = middleware.Logging(handler)
//	handler = middleware.RequestID(handler)
//	handler = middleware.Recovery(handler)
package middleware
