package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shadcn-Component-Manager/web/internal/config"
	"github.com/Shadcn-Component-Manager/web/internal/github"
	"github.com/Shadcn-Component-Manager/web/internal/logging"
	"github.com/Shadcn-Component-Manager/web/internal/registry"
)

// loadConfig reads configuration and applies global flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: flags.configFile})
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Log.Level)
	return logging.New(logging.Options{
		Level:  level,
		Format: logging.Format(cfg.Log.Format),
		Prefix: "scm-web",
	})
}

// backend bundles the registry and the GitHub client behind it.
type backend struct {
	github   *github.Client
	registry *registry.Registry
}

// newBackend wires a registry to GitHub. Metrics are registered with reg
// when it is non-nil; tracing uses tp when it is non-nil.
func newBackend(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer, tp trace.TracerProvider) (*backend, error) {
	gh, err := github.New(github.Options{
		Token:   cfg.GitHub.Token,
		BaseURL: cfg.GitHub.BaseURL,
		Timeout: cfg.GitHub.Timeout,
	})
	if err != nil {
		return nil, err
	}

	opts := []registry.Option{
		registry.WithRepository(registry.Repository{
			Owner:  cfg.Registry.Owner,
			Repo:   cfg.Registry.Repo,
			Branch: cfg.Registry.Branch,
		}),
		registry.WithTTL(cfg.Registry.TreeTTL),
		registry.WithConcurrency(cfg.Registry.Concurrency),
		registry.WithLogger(logger),
	}
	if reg != nil {
		opts = append(opts, registry.WithRegisterer(reg))
	}
	if tp != nil {
		opts = append(opts, registry.WithTracerProvider(tp))
	}

	if cfg.GitHub.Token == "" {
		logger.Warn("no GitHub token configured; requests are subject to anonymous rate limits")
	}

	return &backend{
		github:   gh,
		registry: registry.New(gh, opts...),
	}, nil
}
