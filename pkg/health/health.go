// Package health runs named dependency checks. The storefront CLI uses it for
// `storefront doctor`; the mock backend exposes it over HTTP.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a full Run.
const DefaultTimeout = 5 * time.Second

// Checker checks one dependency.
type Checker func(ctx context.Context) error

// Status is the health of a component or of the whole set.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Response is the aggregated result of a Run.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Names returns the check names in sorted order.
func (r Response) Names() []string {
	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Status   Status        `json:"status"`
	Critical bool          `json:"critical"`
	Latency  time.Duration `json:"latency_ns"`
	Error    string        `json:"error,omitempty"`
}

type registration struct {
	check    Checker
	critical bool
}

// Registry holds the registered checks.
type Registry struct {
	mu     sync.RWMutex
	checks map[string]registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]registration)}
}

// Register adds a critical check, replacing any check with the same name.
func (r *Registry) Register(name string, check Checker) {
	r.RegisterCritical(name, check)
}

// RegisterCritical adds a check whose failure makes the whole set down.
func (r *Registry) RegisterCritical(name string, check Checker) {
	r.register(name, check, true)
}

// RegisterNonCritical adds a check whose failure only degrades the set.
func (r *Registry) RegisterNonCritical(name string, check Checker) {
	r.register(name, check, false)
}

func (r *Registry) register(name string, check Checker, critical bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = registration{check: check, critical: critical}
}

// Run executes every check concurrently.
func (r *Registry) Run(ctx context.Context) Response {
	r.mu.RLock()
	checks := make(map[string]registration, len(r.checks))
	for name, reg := range r.checks {
		checks[name] = reg
	}
	r.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(checks))
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, reg := range checks {
		g.Go(func() error {
			start := time.Now()
			err := reg.check(gctx)
			res := CheckResult{Status: StatusUp, Critical: reg.critical, Latency: time.Since(start)}
			if err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
			// Failures are reported per check, never through the group.
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusUp
	for _, res := range results {
		if res.Status != StatusDown {
			continue
		}
		if res.Critical {
			overall = StatusDown
			break
		}
		overall = StatusDegraded
	}

	return Response{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Checks:    results,
	}
}

// LivenessHandler always answers 200 while the process runs.
func (r *Registry) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Response{Status: StatusUp, Timestamp: time.Now().UTC()})
	}
}

// ReadinessHandler runs the checks and answers 503 when a critical one fails.
func (r *Registry) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), DefaultTimeout)
		defer cancel()

		resp := r.Run(ctx)
		status := http.StatusOK
		if resp.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
