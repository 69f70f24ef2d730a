package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/bundlehub-backend/pkg/metrics"
)

// Metrics counts requests by their matched chi route pattern so path
// parameters do not explode label cardinality.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)

			m.ObserveRequest(routePattern(r), r.Method, rec.code(), time.Since(start))
		})
	}
}
