package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angeloszaimis/dxruntime/config"
	"github.com/angeloszaimis/dxruntime/internal/cache"
	"github.com/angeloszaimis/dxruntime/internal/database"
	"github.com/angeloszaimis/dxruntime/internal/healthcheck"
	"github.com/angeloszaimis/dxruntime/internal/metrics"
	"github.com/angeloszaimis/dxruntime/pkg/logger"
)

const eventBufferSize = 100

// app holds everything the commands share once configuration is loaded.
type app struct {
	runtime   config.RuntimeConfig
	cfg       *config.Config
	log       *slog.Logger
	accessLog *slog.Logger
	databases *database.Registry
	caches    *cache.Registry
	registry  *prometheus.Registry
	collector *metrics.Collector
	checker   *healthcheck.Checker
}

// bootstrap resolves the runtime settings from src, loads the application
// config from configPath and wires the registries behind a Checker for the
// given logical name.
func bootstrap(src config.Source, configPath, name string) (*app, error) {
	rc, err := config.Resolve(src)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	errorOut, err := logger.Output(string(rc.ErrorLog))
	if err != nil {
		return nil, err
	}
	accessOut, err := logger.Output(string(rc.AccessLog))
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment, errorOut)

	caches, err := cache.NewRegistry(cfg.Caches)
	if err != nil {
		return nil, err
	}
	databases := database.NewRegistry(cfg.Databases, log)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(eventBufferSize, log, metrics.WithRegistry(registry))

	checker := healthcheck.NewChecker(
		databaseProbe(databases),
		cacheProbe(caches),
		healthcheck.WithName(name),
		healthcheck.WithTimeout(cfg.HealthCheckTimeout()),
		healthcheck.WithLogger(log),
		healthcheck.WithCollector(collector),
	)

	return &app{
		runtime:   rc,
		cfg:       cfg,
		log:       log,
		accessLog: logger.New(config.LogLevelInfo, false, cfg.Server.Environment, accessOut),
		databases: databases,
		caches:    caches,
		registry:  registry,
		collector: collector,
		checker:   checker,
	}, nil
}

func (a *app) Close() error {
	return a.databases.Close()
}

// The registries return concrete handles; the adapters hand back a nil
// interface on error so the checker never sees a typed nil.
func databaseProbe(reg *database.Registry) healthcheck.DatabaseRegistry {
	return healthcheck.DatabaseRegistryFunc(func(ctx context.Context, name string) (healthcheck.Cursor, error) {
		conn, err := reg.Cursor(ctx, name)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

func cacheProbe(reg *cache.Registry) healthcheck.CacheRegistry {
	return healthcheck.CacheRegistryFunc(func(_ context.Context, name string) (healthcheck.CacheConn, error) {
		conn, err := reg.CreateConnection(name)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}
