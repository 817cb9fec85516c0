package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/pagelift/api/internal/domain"
)

const defaultDependencyTimeout = 1500 * time.Millisecond

// DependencyCheck describes a dependency probe executed during readiness checks.
type DependencyCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

// DependencyHealthOption customises the behaviour of the dependency-backed health repository.
type DependencyHealthOption func(*dependencyHealthRepository)

// WithDependencyTimeout overrides the default timeout applied when a check omits its own timeout.
func WithDependencyTimeout(timeout time.Duration) DependencyHealthOption {
	return func(repo *dependencyHealthRepository) {
		if timeout > 0 {
			repo.defaultTimeout = timeout
		}
	}
}

// WithDependencyClock injects a custom clock primarily for tests.
func WithDependencyClock(clock func() time.Time) DependencyHealthOption {
	return func(repo *dependencyHealthRepository) {
		if clock != nil {
			repo.now = clock
		}
	}
}

type dependencyHealthRepository struct {
	checks         []DependencyCheck
	defaultTimeout time.Duration
	now            func() time.Time
}

var _ HealthRepository = (*dependencyHealthRepository)(nil)

// NewDependencyHealthRepository constructs a HealthRepository that evaluates the provided check set.
func NewDependencyHealthRepository(checks []DependencyCheck, opts ...DependencyHealthOption) (HealthRepository, error) {
	if len(checks) == 0 {
		return nil, errors.New("health repository: at least one dependency check is required")
	}
	for _, check := range checks {
		if strings.TrimSpace(check.Name) == "" {
			return nil, errors.New("health repository: dependency check missing name")
		}
		if check.Check == nil {
			return nil, fmt.Errorf("health repository: dependency %s missing check function", check.Name)
		}
	}

	repo := &dependencyHealthRepository{
		checks:         append([]DependencyCheck(nil), checks...),
		defaultTimeout: defaultDependencyTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

// Collect probes every dependency in parallel and aggregates the outcomes.
func (r *dependencyHealthRepository) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	if ctx == nil {
		return domain.SystemHealthReport{}, errors.New("health repository: context is required")
	}

	type probeResult struct {
		name  string
		check domain.SystemHealthCheck
	}

	results := make([]probeResult, len(r.checks))
	var wg sync.WaitGroup
	wg.Add(len(r.checks))
	for i, check := range r.checks {
		i, check := i, check
		go func() {
			defer wg.Done()
			results[i] = probeResult{name: check.Name, check: r.probe(ctx, check)}
		}()
	}
	wg.Wait()

	checks := make(map[string]domain.SystemHealthCheck, len(results))
	for _, result := range results {
		checks[result.name] = result.check
	}

	return domain.SystemHealthReport{
		Status:      aggregateStatus(checks),
		Checks:      checks,
		GeneratedAt: r.now(),
	}, nil
}

func (r *dependencyHealthRepository) probe(ctx context.Context, check DependencyCheck) domain.SystemHealthCheck {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	var cancel context.CancelFunc
	checkCtx := ctx
	if timeout > 0 {
		checkCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		checkCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := r.now()
	err := check.Check(checkCtx)
	end := r.now()
	if err == nil && checkCtx.Err() != nil {
		// The probe returned after its deadline without noticing.
		err = checkCtx.Err()
	}

	result := domain.SystemHealthCheck{
		Status:    domain.HealthStatusOK,
		Detail:    "ok",
		Latency:   end.Sub(start),
		CheckedAt: end,
	}
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		result.Status = domain.HealthStatusError
		result.Detail = "cancelled"
		result.Error = err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		result.Status = domain.HealthStatusError
		result.Detail = "timeout"
		result.Error = err.Error()
	default:
		result.Status = domain.HealthStatusDegraded
		result.Detail = err.Error()
		result.Error = err.Error()
	}
	return result
}

func aggregateStatus(checks map[string]domain.SystemHealthCheck) string {
	status := domain.HealthStatusOK
	for _, check := range checks {
		switch check.Status {
		case domain.HealthStatusError:
			return domain.HealthStatusError
		case domain.HealthStatusOK:
		default:
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
