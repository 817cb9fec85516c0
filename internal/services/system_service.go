package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/pagelift/api/internal/domain"
	"github.com/pagelift/api/internal/repositories"
)

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	Environment string
	StartedAt   time.Time
}

// SystemServiceDeps bundles collaborators required to construct a system service.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
	Build            BuildInfo
}

type systemService struct {
	healthRepo repositories.HealthRepository
	clock      func() time.Time
	build      BuildInfo
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the system utility service providing health reports.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = clock()
	}

	return &systemService{
		healthRepo: deps.HealthRepository,
		clock: func() time.Time {
			return clock().UTC()
		},
		build: build,
	}, nil
}

// Health collects dependency probes and annotates them with build metadata.
func (s *systemService) Health(ctx context.Context) (SystemHealthReport, error) {
	if ctx == nil {
		return SystemHealthReport{}, errors.New("system service: context is required")
	}

	report, err := s.healthRepo.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}

	now := s.clock()
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	} else {
		report.GeneratedAt = report.GeneratedAt.UTC()
	}
	if strings.TrimSpace(report.Version) == "" {
		report.Version = s.build.Version
	}
	if strings.TrimSpace(report.Environment) == "" {
		report.Environment = s.build.Environment
	}
	if report.Uptime <= 0 && !s.build.StartedAt.IsZero() {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	if len(report.Checks) == 0 {
		report.Checks = map[string]domain.SystemHealthCheck{}
	}
	if strings.TrimSpace(report.Status) == "" {
		report.Status = deriveStatus(report.Checks)
	}
	return report, nil
}

func deriveStatus(checks map[string]domain.SystemHealthCheck) string {
	status := domain.HealthStatusOK
	for _, check := range checks {
		switch check.Status {
		case domain.HealthStatusError:
			return domain.HealthStatusError
		case domain.HealthStatusDegraded:
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
