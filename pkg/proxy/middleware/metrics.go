package middleware

import (
	"net/http"
	"time"
)

// Metrics records per-request observations. routeOf maps a request path
// to its route label (the matched rule prefix) so metric cardinality
// stays bounded by the route table, not by client-supplied paths.
func Metrics(routeOf func(path string) string, observe func(route, method string, status int, duration time.Duration)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			observe(routeOf(r.URL.Path), r.Method, rw.statusCode, time.Since(start))
		})
	}
}
