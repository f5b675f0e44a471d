// Command server runs a shuttle endpoint with a small demo suite of
// services: "echo" streams back every Next payload, "count" streams a run of
// integers, and "stats" reports per-session call counts to connections whose
// bearer token grants the stats capability.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/thejerf/suture/v4"
	"github.com/urfave/cli"

	shuttle "github.com/DenisKolodin/shuttle"
	"github.com/DenisKolodin/shuttle/internal/breaker"
	"github.com/DenisKolodin/shuttle/internal/config"
	"github.com/DenisKolodin/shuttle/internal/logging"
)

func main() {
	app := cli.NewApp()
	app.Name = "shuttle-server"
	app.Usage = "WebSocket request/response dispatcher with suspendable workers"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to a YAML config file",
		},
		cli.StringFlag{
			Name:  "listen, l",
			Usage: "override the listen address",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "minimum log level (debug, info, warn, error)",
		},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		logging.Errorf("%s\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if err := logging.SetLevel(c.String("log-level")); err != nil {
		return errors.Wrap(err, "parse log level")
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if addr := c.String("listen"); addr != "" {
		cfg.ListenAddr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	suite := demoSuite()
	opts := []shuttle.Option[sessionState]{
		shuttle.WithSlabCapacity[sessionState](cfg.SlabCapacity),
		shuttle.WithTimeouts[sessionState](cfg.ReadTimeout, cfg.WriteTimeout),
		shuttle.WithUpgradeLimit[sessionState](cfg.UpgradeRPS, cfg.UpgradeBurst),
		shuttle.WithAllowAnonymous[sessionState](cfg.AllowAnonymous),
		shuttle.WithBreaker[sessionState](breaker.Settings{
			MaxConsecutiveFailures: cfg.BreakerMaxFails,
			OpenTimeout:            cfg.BreakerOpenFor,
		}),
	}
	if cfg.JWTKey != "" {
		opts = append(opts, shuttle.WithJWTKey[sessionState]([]byte(cfg.JWTKey)))
	}

	sup := suture.NewSimple("shuttle")
	sup.Add(&listenerService{
		addr:    cfg.ListenAddr,
		handler: shuttle.Router(ctx, cfg.WebsocketPath, suite, opts...),
	})
	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// listenerService adapts the HTTP listener to a suture.Service so the
// supervisor restarts it if it dies with an error.
type listenerService struct {
	addr    string
	handler http.Handler
}

func (s *listenerService) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.handler}
	logging.Debugf("listening on %s\n", s.addr)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return errors.Wrapf(err, "listen %s", s.addr)
	}
}

func (s *listenerService) String() string {
	return "shuttle-listener@" + s.addr
}
