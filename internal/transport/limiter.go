package transport

import (
	"net/http"

	"golang.org/x/time/rate"
)

// UpgradeLimiter bounds the rate of new WebSocket upgrades accepted by one
// listener, guarding against a connection flood tying up dispatcher
// goroutines.
type UpgradeLimiter struct {
	limiter *rate.Limiter
}

// NewUpgradeLimiter allows rps new upgrades per second, bursting up to
// burst.
func NewUpgradeLimiter(rps float64, burst int) *UpgradeLimiter {
	return &UpgradeLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Allow reports whether a new upgrade may proceed right now.
func (l *UpgradeLimiter) Allow() bool {
	return l.limiter.Allow()
}

// Reject writes a 429 response for a throttled upgrade attempt.
func Reject(w http.ResponseWriter) {
	http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
}
