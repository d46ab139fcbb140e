package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/clickmart/pkg/logger"
)

// Check is a named dependency probe used by ReadinessHandler.
type Check struct {
	Name string
	Fn   func(context.Context) error
}

// CheckResult is the per-dependency outcome in a readiness response.
type CheckResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// HealthReport is the body written by both probes.
type HealthReport struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks,omitempty"`
}

const (
	StatusAlive    = "alive"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// LivenessHandler always answers 200 with {"status":"alive"}.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeReport(w, http.StatusOK, HealthReport{Status: StatusAlive})
	}
}

// ReadinessHandler runs every check within timeout and answers 200 when all
// pass, 503 otherwise. Every check runs even after one fails so the report
// names all broken dependencies.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		report := HealthReport{Status: StatusReady, Checks: make([]CheckResult, 0, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			res := CheckResult{Name: c.Name, OK: true}
			if err := c.Fn(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", slog.String("check", c.Name), logger.Error(err))
				res.OK, res.Error = false, err.Error()
				report.Status, status = StatusNotReady, http.StatusServiceUnavailable
			}
			report.Checks = append(report.Checks, res)
		}

		writeReport(w, status, report)
	}
}

func writeReport(w http.ResponseWriter, status int, report HealthReport) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}
