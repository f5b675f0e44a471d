package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTripsAfterConsecutiveFailures(t *testing.T) {
	r := NewRegistry(Settings{MaxConsecutiveFailures: 2, OpenTimeout: 50 * time.Millisecond})
	boom := errors.New("worker error")

	require.ErrorIs(t, r.Call("svc", func() error { return boom }), boom)
	require.ErrorIs(t, r.Call("svc", func() error { return boom }), boom)

	err := r.Call("svc", func() error { return nil })
	require.ErrorIs(t, err, ErrOpen)
}

func TestRecoversAfterTimeout(t *testing.T) {
	r := NewRegistry(Settings{MaxConsecutiveFailures: 1, OpenTimeout: 10 * time.Millisecond})
	boom := errors.New("worker error")
	require.ErrorIs(t, r.Call("svc", func() error { return boom }), boom)
	require.ErrorIs(t, r.Call("svc", func() error { return nil }), ErrOpen)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.Call("svc", func() error { return nil }))
}

func TestServicesAreIndependent(t *testing.T) {
	r := NewRegistry(Settings{MaxConsecutiveFailures: 1, OpenTimeout: time.Hour})
	boom := errors.New("worker error")
	require.ErrorIs(t, r.Call("a", func() error { return boom }), boom)
	require.NoError(t, r.Call("b", func() error { return nil }))
}
