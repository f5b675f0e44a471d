package shuttle

import (
	"sync"

	"github.com/pkg/errors"
)

// Builder mints a fresh per-connection state value at connection accept
// time: a simple factory parameterized by the session type, in place of
// global mutable state or dependency-injection plumbing.
type Builder[T any] func() T

// Service is a stateless (or internally-synchronized) factory that routes
// one call's Request to a freshly owned Worker. Route never itself fails
// a call outright — a Service that wants to refuse should route to
// RejectWorker, or let the returned Worker's Prepare do so.
type Service[T any] interface {
	Route(request Request) Worker[T]
}

// ServiceFunc adapts a plain function to the Service interface.
type ServiceFunc[T any] func(Request) Worker[T]

// Route calls f.
func (f ServiceFunc[T]) Route(request Request) Worker[T] { return f(request) }

// ErrServiceNotFound is returned by Suite.route when no service is
// registered under the requested name.
var ErrServiceNotFound = errors.New("shuttle: service not found")

// Suite holds the server-wide registry of services plus the per-connection
// state Builder. It is shared read-only across all connections once Start
// is called; the service map is never mutated after that point.
type Suite[T any] struct {
	builder Builder[T]

	mu       sync.RWMutex
	services map[string]Service[T]
}

// NewSuite returns an empty Suite using builder to mint per-connection
// state.
func NewSuite[T any](builder Builder[T]) *Suite[T] {
	return &Suite[T]{
		builder:  builder,
		services: make(map[string]Service[T]),
	}
}

// Register adds service under name. Names are case-sensitive; a duplicate
// name silently overwrites the previous registration (last write wins).
// Call Register only before Start; Suite performs no synchronization beyond
// what concurrent lookups from already-running connections need.
func (s *Suite[T]) Register(name string, service Service[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[name] = service
}

// Names returns the registered service names, for introspection endpoints.
func (s *Suite[T]) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	return names
}

// Build mints a fresh per-connection state value.
func (s *Suite[T]) Build() T {
	return s.builder()
}

// route looks up name and asks the matching Service to route request to a
// fresh Worker.
func (s *Suite[T]) route(name string, request Request) (Worker[T], error) {
	s.mu.RLock()
	svc, ok := s.services[name]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrServiceNotFound, "%q", name)
	}
	return svc.Route(request), nil
}
