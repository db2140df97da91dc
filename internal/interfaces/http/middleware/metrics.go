package middleware

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latency per chi route pattern, so
// contract IDs in the path do not become label values.  403 responses are
// also counted as permission denials of that route.
func Metrics(m *prometheus.AppMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := prometheus.TrackInFlight(m, r.Method)
			snoop := httpsnoop.CaptureMetrics(next, w, r)
			done()

			route := routePattern(r)
			prometheus.RecordHTTPRequest(m, r.Method, route, snoop.Code, snoop.Duration)
			if snoop.Code == http.StatusForbidden {
				prometheus.RecordPermissionDenied(m, route)
			}
		})
	}
}

// routePattern is the matched chi pattern.  It is only complete after the
// router has served r.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

//Personal.AI order the ending
