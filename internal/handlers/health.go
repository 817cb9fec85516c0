package handlers

import (
	"net/http"
	"time"

	"github.com/pagelift/api/internal/domain"
	"github.com/pagelift/api/internal/services"
)

// HealthHandlers serves the liveness and readiness probes. Liveness never
// touches dependencies; readiness reflects the aggregated dependency report.
type HealthHandlers struct {
	system  services.SystemService
	clock   func() time.Time
	started time.Time
}

// HealthOption customises the probe handlers.
type HealthOption func(*HealthHandlers)

// WithSystemService wires the dependency report into the readiness probe.
func WithSystemService(system services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = system
	}
}

// WithHealthClock overrides the time source, used by tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		h.clock = clock
	}
}

// NewHealthHandlers builds probe handlers. Without a system service the
// readiness probe degenerates to liveness.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	h.started = h.clock()
	return h
}

type healthCheckPayload struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
}

type readinessPayload struct {
	Status      string                        `json:"status"`
	Version     string                        `json:"version,omitempty"`
	Environment string                        `json:"environment,omitempty"`
	Uptime      string                        `json:"uptime,omitempty"`
	Checks      map[string]healthCheckPayload `json:"checks,omitempty"`
	GeneratedAt string                        `json:"generated_at,omitempty"`
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.started).Truncate(time.Second).String(),
		"timestamp": now.Format(time.RFC3339),
	})
}

// Readyz reports whether the service can do useful work. A failed dependency
// probe turns into 503 so load balancers stop routing here.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		h.Healthz(w, r)
		return
	}

	report, err := h.system.Health(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, readinessPayload{Status: domain.HealthStatusError})
		return
	}

	payload := readinessPayload{
		Status:      report.Status,
		Version:     report.Version,
		Environment: report.Environment,
		Uptime:      report.Uptime.Truncate(time.Second).String(),
		GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
	}
	if len(report.Checks) > 0 {
		payload.Checks = make(map[string]healthCheckPayload, len(report.Checks))
		for name, check := range report.Checks {
			payload.Checks[name] = healthCheckPayload{
				Status:    check.Status,
				Detail:    check.Detail,
				Error:     check.Error,
				LatencyMS: check.Latency.Milliseconds(),
			}
		}
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, payload)
}
