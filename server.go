package shuttle

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"

	"github.com/DenisKolodin/shuttle/internal/breaker"
	"github.com/DenisKolodin/shuttle/internal/logging"
	"github.com/DenisKolodin/shuttle/internal/metrics"
	"github.com/DenisKolodin/shuttle/internal/rights"
	"github.com/DenisKolodin/shuttle/internal/transport"
)

// settings collects every Option into the knobs Handler/Start need.
type settings[T any] struct {
	slabCapacity    int
	jwtKey          []byte
	allowAnonymous  bool
	breakerSettings breaker.Settings
	upgradeRPS      float64
	upgradeBurst    int
	readTimeout     time.Duration
	writeTimeout    time.Duration
	checkOrigin     func(*http.Request) bool
}

func defaultSettings[T any]() settings[T] {
	return settings[T]{
		slabCapacity:    10,
		allowAnonymous:  true,
		breakerSettings: breaker.DefaultSettings,
		upgradeRPS:      50,
		upgradeBurst:    20,
		checkOrigin:     func(*http.Request) bool { return true },
	}
}

// Option configures a Suite's Handler/Start behavior.
type Option[T any] func(*settings[T])

// WithSlabCapacity bounds the per-connection suspension slab. Default 10.
func WithSlabCapacity[T any](n int) Option[T] {
	return func(s *settings[T]) { s.slabCapacity = n }
}

// WithJWTKey enables bearer-token verification with key. Connections
// presenting no token are still admitted with the empty Rights set unless
// WithAllowAnonymous(false) is also set.
func WithJWTKey[T any](key []byte) Option[T] {
	return func(s *settings[T]) { s.jwtKey = key }
}

// WithAllowAnonymous controls whether a connection with no bearer token is
// granted the empty Rights set rather than rejected. Default true.
func WithAllowAnonymous[T any](allow bool) Option[T] {
	return func(s *settings[T]) { s.allowAnonymous = allow }
}

// WithBreaker overrides the per-service circuit breaker thresholds.
func WithBreaker[T any](bs breaker.Settings) Option[T] {
	return func(s *settings[T]) { s.breakerSettings = bs }
}

// WithUpgradeLimit bounds new WebSocket upgrades per second.
func WithUpgradeLimit[T any](rps float64, burst int) Option[T] {
	return func(s *settings[T]) { s.upgradeRPS = rps; s.upgradeBurst = burst }
}

// WithTimeouts sets the idle read/write deadline applied to each
// connection's Recv/Send. Zero (the default) disables a deadline; the core
// itself imposes no implicit timeouts.
func WithTimeouts[T any](read, write time.Duration) Option[T] {
	return func(s *settings[T]) { s.readTimeout = read; s.writeTimeout = write }
}

// WithOriginCheck overrides the default (allow-all) WebSocket origin check.
func WithOriginCheck[T any](fn func(*http.Request) bool) Option[T] {
	return func(s *settings[T]) { s.checkOrigin = fn }
}

// parkedCount tracks parked workers across every session served by this
// process, for the /debug/suite introspection route. The prometheus gauge
// carries the same number for scrapers.
var parkedCount atomic.Int64

// Handler returns an http.Handler that upgrades requests to WebSocket
// connections and drives one shuttle session per connection until ctx is
// canceled or the connection ends. Mount it at whatever path you like in
// your own router, or use Router/Start for the batteries-included layout.
func Handler[T any](ctx context.Context, suite *Suite[T], opts ...Option[T]) http.Handler {
	cfg := defaultSettings[T]()
	for _, o := range opts {
		o(&cfg)
	}
	upgrader := transport.NewUpgrader(4096, 4096, cfg.checkOrigin)
	limiter := transport.NewUpgradeLimiter(cfg.upgradeRPS, cfg.upgradeBurst)
	breakers := breaker.NewRegistry(cfg.breakerSettings)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			transport.Reject(w)
			return
		}
		rts, err := resolveRights(r, cfg)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r)
		if err != nil {
			logging.Warnf("upgrade failed: %s\n", err)
			return
		}
		go serveConnection(ctx, conn, suite, rts, cfg, breakers)
	})
}

// serveConnection owns one accepted connection for its whole life: mint the
// per-connection state, run the session loop, then tear the socket down and
// settle the counters.
func serveConnection[T any](ctx context.Context, conn *transport.Conn, suite *Suite[T], rts rights.Rights, cfg settings[T], breakers *breaker.Registry) {
	connID := logging.NewConnID()
	log := logging.ConnLogger(connID)
	log.Debug().Stringer("remote", conn.RemoteAddr()).Msg("connection accepted")

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()
	defer conn.Close(ctx)

	sess := newContext(conn, suite.Build(), rts, connID, log)
	sess.setTimeouts(cfg.readTimeout, cfg.writeTimeout)

	err := runSession(ctx, sess, suite, dispatchOptions{
		slabCapacity: cfg.slabCapacity,
		breakers:     breakers,
	})
	switch {
	case err == nil, Kind(err) == KindConnectionClosedFailure, errors.Is(err, context.Canceled):
		// orderly end.
	default:
		log.Warn().Err(err).Msg("session ended abnormally")
	}

	read, wrote := conn.Counter().Snapshot()
	log.Debug().Uint64("bytes_in", read).Uint64("bytes_out", wrote).Msg("session finished")
}

func resolveRights[T any](r *http.Request, cfg settings[T]) (rights.Rights, error) {
	token := bearerToken(r)
	if token == "" {
		if cfg.allowAnonymous {
			return rights.Anonymous, nil
		}
		return nil, errors.New("shuttle: missing bearer token")
	}
	if len(cfg.jwtKey) == 0 {
		return nil, errors.New("shuttle: no verification key configured")
	}
	return rights.FromToken(token, cfg.jwtKey)
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

// Router mounts the WebSocket endpoint at path alongside the operational
// routes a deployment wants next to it: /healthz, /metrics, and a read-only
// /debug/suite JSON view of the registry.
func Router[T any](ctx context.Context, path string, suite *Suite[T], opts ...Option[T]) chi.Router {
	r := chi.NewRouter()
	r.Handle(path, Handler(ctx, suite, opts...))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/debug/suite", func(w http.ResponseWriter, _ *http.Request) {
		names := suite.Names()
		sort.Strings(names)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Services      []string `json:"services"`
			ParkedWorkers int64    `json:"parked_workers"`
		}{Services: names, ParkedWorkers: parkedCount.Load()})
	})
	return r
}

// Start binds addr, mounts suite's WebSocket endpoint at /shuttle, and
// blocks accepting connections until ctx is canceled. Deployments that
// need their own path, middleware, or server tuning should use Router or
// Handler directly (see cmd/server).
func Start[T any](ctx context.Context, addr string, suite *Suite[T], opts ...Option[T]) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: Router(ctx, "/shuttle", suite, opts...),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logging.Debugf("listening on %s\n", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "shuttle: serve")
	}
	return nil
}
