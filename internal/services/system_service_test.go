package services

import (
	"context"
	"testing"
	"time"

	domain "github.com/pagelift/api/internal/domain"
)

type stubHealthRepository struct {
	report domain.SystemHealthReport
	err    error
}

func (r *stubHealthRepository) Collect(context.Context) (domain.SystemHealthReport, error) {
	if r.err != nil {
		return domain.SystemHealthReport{}, r.err
	}
	return r.report, nil
}

func TestSystemServiceHealthAnnotatesReport(t *testing.T) {
	started := time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC)
	now := started.Add(90 * time.Minute)

	service, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepository{
			report: domain.SystemHealthReport{
				Checks: map[string]domain.SystemHealthCheck{
					"firestore": {Status: domain.HealthStatusOK},
				},
			},
		},
		Clock: func() time.Time { return now },
		Build: BuildInfo{Version: "1.4.0", Environment: "production", StartedAt: started},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := service.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}

	if report.Status != domain.HealthStatusOK {
		t.Fatalf("status = %q, want ok", report.Status)
	}
	if report.Version != "1.4.0" || report.Environment != "production" {
		t.Fatalf("build metadata = %q/%q", report.Version, report.Environment)
	}
	if report.Uptime != 90*time.Minute {
		t.Fatalf("uptime = %v, want 90m", report.Uptime)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Fatalf("generated at = %v, want %v", report.GeneratedAt, now)
	}
}

func TestSystemServiceHealthDerivesWorstStatus(t *testing.T) {
	service, err := NewSystemService(SystemServiceDeps{
		HealthRepository: &stubHealthRepository{
			report: domain.SystemHealthReport{
				Checks: map[string]domain.SystemHealthCheck{
					"firestore": {Status: domain.HealthStatusOK},
					"pubsub":    {Status: domain.HealthStatusError, Error: "deadline exceeded"},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := service.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("status = %q, want error", report.Status)
	}
}
