package healthcheck

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/angeloszaimis/dxruntime/config"
	"github.com/angeloszaimis/dxruntime/internal/metrics"
)

// Cursor is a database handle checked out for a single probe.
type Cursor interface {
	PingContext(ctx context.Context) error
	Close() error
}

// CacheConn is a cache handle created for a single probe.
type CacheConn interface {
	Ping(ctx context.Context) error
	Close() error
}

type DatabaseRegistry interface {
	Cursor(ctx context.Context, name string) (Cursor, error)
}

// DatabaseRegistryFunc adapts a function to DatabaseRegistry.
type DatabaseRegistryFunc func(ctx context.Context, name string) (Cursor, error)

func (f DatabaseRegistryFunc) Cursor(ctx context.Context, name string) (Cursor, error) {
	return f(ctx, name)
}

type CacheRegistry interface {
	CreateConnection(ctx context.Context, name string) (CacheConn, error)
}

// CacheRegistryFunc adapts a function to CacheRegistry.
type CacheRegistryFunc func(ctx context.Context, name string) (CacheConn, error)

func (f CacheRegistryFunc) CreateConnection(ctx context.Context, name string) (CacheConn, error) {
	return f(ctx, name)
}

var (
	errNoDatabaseRegistry = errors.New("no database registry configured")
	errNoCacheRegistry    = errors.New("no cache registry configured")
)

type Option func(*Checker)

// WithName probes a logical name other than "default".
func WithName(name string) Option {
	return func(c *Checker) {
		c.name = name
	}
}

// WithTimeout bounds each probe. Zero leaves the caller's context alone.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		c.timeout = timeout
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCollector reports every probe outcome to the metrics collector.
func WithCollector(collector *metrics.Collector) Option {
	return func(c *Checker) {
		c.collector = collector
	}
}

// Checker probes one database and one cache by logical name.
type Checker struct {
	databases DatabaseRegistry
	caches    CacheRegistry
	name      string
	timeout   time.Duration
	logger    *slog.Logger
	collector *metrics.Collector
}

func NewChecker(databases DatabaseRegistry, caches CacheRegistry, opts ...Option) *Checker {
	c := &Checker{
		databases: databases,
		caches:    caches,
		name:      config.DefaultAlias,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckDatabase checks out a cursor, pings through it and returns it to the
// pool on every path.
func (c *Checker) CheckDatabase(ctx context.Context) Result {
	return c.probe(ctx, ResourceDatabase, func(ctx context.Context) error {
		if c.databases == nil {
			return errNoDatabaseRegistry
		}

		cursor, err := c.databases.Cursor(ctx, c.name)
		if err != nil {
			return err
		}
		if cursor == nil {
			return ErrNilHandle
		}
		defer cursor.Close()

		return cursor.PingContext(ctx)
	})
}

// CheckCache creates a connection, pings it and closes it on every path.
func (c *Checker) CheckCache(ctx context.Context) Result {
	return c.probe(ctx, ResourceCache, func(ctx context.Context) error {
		if c.caches == nil {
			return errNoCacheRegistry
		}

		conn, err := c.caches.CreateConnection(ctx, c.name)
		if err != nil {
			return err
		}
		if conn == nil {
			return ErrNilHandle
		}
		defer conn.Close()

		return conn.Ping(ctx)
	})
}

// Run probes the database and the cache concurrently. Each result is
// independent of the other.
func (c *Checker) Run(ctx context.Context) Report {
	var (
		report Report
		wg     sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		report.Database = c.CheckDatabase(ctx)
	}()
	go func() {
		defer wg.Done()
		report.Cache = c.CheckCache(ctx)
	}()
	wg.Wait()

	return report
}

func (c *Checker) probe(ctx context.Context, resource Resource, check func(context.Context) error) Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := check(ctx)

	result := Result{
		Resource: resource,
		Name:     c.name,
		Latency:  time.Since(start),
	}

	if err != nil {
		result.Err = &ConnectivityFailure{Resource: resource, Name: c.name, Err: err}
		c.logger.Warn("Resource unreachable",
			slog.String("resource", string(resource)),
			slog.String("name", c.name),
			slog.Duration("latency", result.Latency),
			slog.String("error", err.Error()))
	} else {
		c.logger.Info("Resource reachable",
			slog.String("resource", string(resource)),
			slog.String("name", c.name),
			slog.Duration("latency", result.Latency))
	}

	c.emitEvent(metrics.ProbeEvent{
		Resource:  string(resource),
		Name:      c.name,
		Timestamp: time.Now(),
		Duration:  result.Latency,
		OK:        err == nil,
	})

	return result
}

func (c *Checker) emitEvent(event metrics.ProbeEvent) {
	if c.collector == nil {
		return
	}

	select {
	case c.collector.EventChannel() <- event:
	default:
	}
}
