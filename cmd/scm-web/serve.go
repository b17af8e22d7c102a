package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Shadcn-Component-Manager/web/internal/api"
	"github.com/Shadcn-Component-Manager/web/internal/config"
	"github.com/Shadcn-Component-Manager/web/internal/live"
	"github.com/Shadcn-Component-Manager/web/internal/registry"
	"github.com/Shadcn-Component-Manager/web/internal/session"
	"github.com/Shadcn-Component-Manager/web/pkg/middleware"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the registry API server",
		Long: `Start the registry API server.

Serves the component catalog, component detail, search, profiles and the
signed-in user's components under /api, a WebSocket revision feed at
/api/live, /healthz and Prometheus metrics at /metrics.

Examples:
  scm-web serve
  scm-web serve --addr=:9000
  SCM_LOG_LEVEL=debug scm-web serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from server.address)")

	return cmd
}

// revisionSource invalidates every cache layer when the registry moves.
type revisionSource struct {
	registry *registry.Registry
	api      *api.Server
}

func (s revisionSource) Revision(ctx context.Context) (string, error) {
	return s.registry.Revision(ctx)
}

func (s revisionSource) Invalidate() {
	s.registry.Invalidate()
	s.api.Purge()
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cfg)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	be, err := newBackend(cfg, logger, promReg, tp)
	if err != nil {
		return err
	}

	var srv *api.Server
	hub := live.NewHub(
		live.WithOriginCheck(func(r *http.Request) bool { return srv.AllowOrigin(r) }),
		live.WithHubLogger(logger),
	)

	apiCfg := api.Config{
		Registry:       be.registry,
		Users:          be.github,
		Sessions:       session.NewCookieProvider(session.WithCookieName(cfg.Session.Cookie), session.WithLogger(logger)),
		Metrics:        middleware.NewMetrics(middleware.WithRegistry(promReg)),
		Gatherer:       promReg,
		TracerProvider: tp,
		Origins:        cfg.Origins(),
		CacheTTL:       cfg.HTTP.CacheTTL,
		CacheSize:      cfg.HTTP.CacheSize,
		Logger:         logger,
	}
	if cfg.Live.Enabled {
		apiCfg.Live = hub
	}
	srv = api.New(apiCfg)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Live.Enabled {
		watcher := live.NewWatcher(revisionSource{registry: be.registry, api: srv}, hub, cfg.Live.PollInterval, logger)
		go watcher.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		repo := be.registry.Repository()
		logger.Info("server starting",
			"address", cfg.Server.Address,
			"repository", repo.Owner+"/"+repo.Repo,
			"branch", repo.Branch,
			"config", cfg.Path(),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil

	case <-ctx.Done():
		logger.Info("shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown error", "error", err)
	}

	logger.Info("server shutdown complete")
	return nil
}
