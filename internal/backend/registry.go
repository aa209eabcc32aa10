package backend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"fjacquet/spendlog/internal/logging"
	"fjacquet/spendlog/internal/pipelineerror"
)

// Registry holds every configured backend and the currently active one.
// Active is lock-free so in-flight extractions never contend with a switch.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	order    []string
	active   atomic.Pointer[Backend]
	logger   logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Registry{
		backends: make(map[string]Backend),
		logger:   logger,
	}
}

// Register adds a backend under name. The first registered backend becomes
// active until SetActive selects another. Registering an existing name
// replaces it.
func (r *Registry) Register(name string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[name]; !exists {
		r.order = append(r.order, name)
	}
	r.backends[name] = b

	current := r.active.Load()
	if current == nil || (*current).Name() == name {
		r.active.Store(&b)
	}
	r.logger.Debug("Registered backend", logging.F(logging.FieldBackend, name))
}

// SetActive switches the active backend. Unknown names leave the current
// selection untouched and return false.
func (r *Registry) SetActive(name string) bool {
	r.mu.RLock()
	b, ok := r.backends[name]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("Ignoring switch to unknown backend", logging.F(logging.FieldBackend, name))
		return false
	}
	r.active.Store(&b)
	r.logger.Info("Switched active backend", logging.F(logging.FieldBackend, name))
	return true
}

// Active returns the backend in use, or nil if none is registered. Callers
// must keep the returned value for the duration of a multi-step operation.
func (r *Registry) Active() Backend {
	p := r.active.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// Names lists registered backends in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Validate returns ErrNoBackends when nothing has been registered.
func (r *Registry) Validate() error {
	if r.Active() == nil {
		return pipelineerror.ErrNoBackends
	}
	return nil
}

// HealthAll probes every backend concurrently. A probe that panics is
// reported as unhealthy without affecting the others.
func (r *Registry) HealthAll(ctx context.Context) map[string]HealthStatus {
	r.mu.RLock()
	snapshot := make(map[string]Backend, len(r.backends))
	for name, b := range r.backends {
		snapshot[name] = b
	}
	r.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]HealthStatus, len(snapshot))
	)
	for name, b := range snapshot {
		wg.Add(1)
		go func(name string, b Backend) {
			defer wg.Done()
			status := safeProbe(ctx, b)
			mu.Lock()
			results[name] = status
			mu.Unlock()
		}(name, b)
	}
	wg.Wait()
	return results
}

func safeProbe(ctx context.Context, b Backend) (status HealthStatus) {
	defer func() {
		if rec := recover(); rec != nil {
			status = HealthStatus{Healthy: false, Detail: fmt.Sprintf("health probe panicked: %v", rec)}
		}
	}()
	return b.CheckHealth(ctx)
}
