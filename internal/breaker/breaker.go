// Package breaker guards the dispatcher's Prepare/Realize calls against a
// service whose worker keeps failing: one circuit breaker per registered
// service name, opened after repeated worker errors, short-circuiting
// further calls to that service until it recovers.
package breaker

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/DenisKolodin/shuttle/internal/metrics"
)

// Settings configures every breaker minted by a Registry.
type Settings struct {
	// MaxConsecutiveFailures trips the breaker after this many consecutive
	// WorkerErrors for one service.
	MaxConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before allowing a
	// single trial call through (half-open).
	OpenTimeout time.Duration
}

// DefaultSettings trips after five consecutive failures and holds the
// breaker open for thirty seconds.
var DefaultSettings = Settings{
	MaxConsecutiveFailures: 5,
	OpenTimeout:            30 * time.Second,
}

// Registry lazily creates and caches one breaker per service name.
type Registry struct {
	settings Settings
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

// NewRegistry returns a Registry that mints breakers with settings.
func NewRegistry(settings Settings) *Registry {
	return &Registry{
		settings: settings,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func (r *Registry) breakerFor(service string) *gobreaker.CircuitBreaker[struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[service]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        service,
		Timeout:     r.settings.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= r.settings.MaxConsecutiveFailures },
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				metrics.BreakerTrips.WithLabelValues(name).Inc()
			}
		},
	})
	r.breakers[service] = b
	return b
}

// ErrOpen is returned by Call when service's breaker is open.
var ErrOpen = gobreaker.ErrOpenState

// Call runs fn through service's breaker. fn's error counts toward the trip
// threshold; when the breaker is open, fn is never invoked and ErrOpen is
// returned instead.
func (r *Registry) Call(service string, fn func() error) error {
	b := r.breakerFor(service)
	_, err := b.Execute(func() (struct{}, error) { return struct{}{}, fn() })
	return err
}
