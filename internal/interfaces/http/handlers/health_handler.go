package handlers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

const readinessTimeout = 5 * time.Second

// HealthChecker is one dependency probed by /readyz.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

type probe struct {
	name     string
	optional bool
	fn       func(ctx context.Context) error
}

func (p probe) Name() string                    { return p.name }
func (p probe) Check(ctx context.Context) error { return p.fn(ctx) }

// NamedCheck wraps a probe such as (*postgres.Connection).HealthCheck.  A
// failure makes the instance not ready.
func NamedCheck(name string, fn func(ctx context.Context) error) HealthChecker {
	return probe{name: name, fn: fn}
}

// OptionalCheck is reported as degraded on failure but keeps the
// instance in rotation.
func OptionalCheck(name string, fn func(ctx context.Context) error) HealthChecker {
	return probe{name: name, optional: true, fn: fn}
}

func isOptional(c HealthChecker) bool {
	p, ok := c.(probe)
	return ok && p.optional
}

type HealthHandler struct {
	version  string
	started  time.Time
	checkers []HealthChecker
}

func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{version: version, started: time.Now(), checkers: checkers}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

type ComponentCheck struct {
	Status  common.ComponentState `json:"status"`
	Latency string                `json:"latency,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// Liveness answers GET /healthz without touching any dependency.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	})
}

// Readiness answers GET /readyz with 503 when a required probe fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	results := h.probeAll(ctx)
	resp := ReadinessResponse{Status: common.Ready, Components: make(map[string]ComponentCheck, len(results))}
	status := http.StatusOK
	for i, res := range results {
		resp.Components[h.checkers[i].Name()] = res
		if res.Status == common.StateUnhealthy {
			resp.Status, status = common.NotReady, http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

// probeAll runs every checker in parallel.  results[i] belongs to
// h.checkers[i].
func (h *HealthHandler) probeAll(ctx context.Context) []ComponentCheck {
	results := make([]ComponentCheck, len(h.checkers))
	var g errgroup.Group
	for i, c := range h.checkers {
		i, c := i, c
		g.Go(func() error {
			start := time.Now()
			err := c.Check(ctx)
			res := ComponentCheck{Status: common.StateHealthy, Latency: time.Since(start).Round(time.Microsecond).String()}
			if err != nil {
				res.Error = err.Error()
				res.Status = common.StateUnhealthy
				if isOptional(c) {
					res.Status = common.StateDegraded
				}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

//Personal.AI order the ending
