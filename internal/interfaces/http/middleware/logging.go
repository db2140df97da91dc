package middleware

import (
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
)

type LoggingConfig struct {
	// SkipPaths are served without an access log line.
	SkipPaths []string
	// SlowThreshold logs successful requests at Warn once exceeded.  Zero
	// disables it.
	SlowThreshold time.Duration
}

func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 3 * time.Second,
	}
}

// RequestLogging writes one access log line per request.  The level
// follows the outcome: Error for 5xx, Warn for 4xx and slow requests.
func RequestLogging(logger logging.Logger, cfg LoggingConfig) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	log := logger.Named("access")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			m := httpsnoop.CaptureMetrics(next, w, r)
			ctx := r.Context()
			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.String("route", routePattern(r)),
				logging.Int("status", m.Code),
				logging.Duration("duration", m.Duration),
				logging.Int64("bytes", m.Written),
				logging.String("remote_addr", r.RemoteAddr),
				logging.String("request_id", logging.RequestIDFromContext(ctx)),
			}
			if user := logging.UserIDFromContext(ctx); user != "" {
				fields = append(fields, logging.String("user_id", user))
			}

			switch {
			case m.Code >= http.StatusInternalServerError:
				log.Error("Request failed", fields...)
			case m.Code >= http.StatusBadRequest:
				log.Warn("Request rejected", fields...)
			case cfg.SlowThreshold > 0 && m.Duration >= cfg.SlowThreshold:
				log.Warn("Slow request", fields...)
			default:
				log.Info("Request served", fields...)
			}
		})
	}
}

//Personal.AI order the ending
