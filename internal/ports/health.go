package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrDuplicateChecker is returned when attempting to register a health checker
// with a name that is already registered.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// HealthChecker is implemented by components that can report their health.
// The remote collection source registers itself at startup.
type HealthChecker interface {
	// Name returns a unique identifier used in readiness responses.
	Name() string

	// Check returns nil when the component is usable.
	// Implementations should respect context cancellation and deadlines.
	Check(ctx context.Context) error
}

// HealthRegistry aggregates health checks from multiple components.
type HealthRegistry interface {
	// Register adds a health checker to the registry.
	Register(checker HealthChecker) error

	// CheckAll runs all registered health checks and returns aggregated results.
	CheckAll(ctx context.Context) *HealthResult
}

// HealthStatus represents the overall health state.
type HealthStatus string

const (
	// HealthStatusHealthy indicates all checks passed.
	HealthStatusHealthy HealthStatus = "healthy"

	// HealthStatusDegraded indicates only non-critical checks failed.
	// The service still answers from its local collection.
	HealthStatusDegraded HealthStatus = "degraded"

	// HealthStatusUnhealthy indicates a critical check failed.
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult contains the aggregated health check results.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult contains the result of a single health check.
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
	Critical bool          `json:"critical"`
}

type registeredChecker struct {
	checker  HealthChecker
	critical bool
}

// DefaultHealthRegistry is a thread-safe implementation of HealthRegistry.
// Checkers registered with Register are critical; RegisterOptional adds
// ones whose failure only degrades the result.
type DefaultHealthRegistry struct {
	mu       sync.RWMutex
	checkers []registeredChecker
	timeout  time.Duration
}

// NewHealthRegistry creates a registry that bounds each check by timeout.
// A zero timeout leaves only the caller's context deadline.
func NewHealthRegistry(timeout time.Duration) *DefaultHealthRegistry {
	return &DefaultHealthRegistry{timeout: timeout}
}

// Register adds a critical health checker.
func (r *DefaultHealthRegistry) Register(checker HealthChecker) error {
	return r.add(checker, true)
}

// RegisterOptional adds a checker whose failure reports degraded, not unhealthy.
func (r *DefaultHealthRegistry) RegisterOptional(checker HealthChecker) error {
	return r.add(checker, false)
}

func (r *DefaultHealthRegistry) add(checker HealthChecker, critical bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := checker.Name()
	for _, c := range r.checkers {
		if c.checker.Name() == name {
			return fmt.Errorf("%w: %s", ErrDuplicateChecker, name)
		}
	}

	r.checkers = append(r.checkers, registeredChecker{checker: checker, critical: critical})

	return nil
}

// CheckAll runs all registered health checks concurrently.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	checkers := make([]registeredChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	result := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(checkers)),
		Timestamp: time.Now(),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, rc := range checkers {
		wg.Go(func() {
			cr := r.run(ctx, rc)

			mu.Lock()
			defer mu.Unlock()

			result.Checks[rc.checker.Name()] = cr
			result.Status = worse(result.Status, cr.Status)
		})
	}

	wg.Wait()

	return result
}

func (r *DefaultHealthRegistry) run(ctx context.Context, rc registeredChecker) *CheckResult {
	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	err := rc.checker.Check(ctx)

	cr := &CheckResult{
		Status:   HealthStatusHealthy,
		Duration: time.Since(start),
		Critical: rc.critical,
	}

	if err != nil {
		cr.Message = err.Error()
		cr.Status = HealthStatusDegraded

		if rc.critical {
			cr.Status = HealthStatusUnhealthy
		}
	}

	return cr
}

func worse(a, b HealthStatus) HealthStatus {
	rank := map[HealthStatus]int{
		HealthStatusHealthy:   0,
		HealthStatusDegraded:  1,
		HealthStatusUnhealthy: 2,
	}

	if rank[b] > rank[a] {
		return b
	}

	return a
}
