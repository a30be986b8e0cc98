package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angeloszaimis/dxruntime/config"
)

// ErrUnknownAlias is returned for a logical name with no configuration.
var ErrUnknownAlias = errors.New("cache: unknown alias")

// Connection is a client bound to one configured cache.
type Connection struct {
	alias  string
	client *redis.Client
}

// Ping round-trips to the server. Retries are disabled, so one failure is
// reported as-is.
func (c *Connection) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache %q: ping: %w", c.alias, err)
	}
	return nil
}

func (c *Connection) Alias() string {
	return c.alias
}

func (c *Connection) Client() *redis.Client {
	return c.client
}

func (c *Connection) Close() error {
	return c.client.Close()
}

// Registry creates cache connections by logical alias.
type Registry struct {
	options map[string]*redis.Options
}

// NewRegistry checks every cache configuration up front so that
// CreateConnection only fails on an unknown alias.
func NewRegistry(configs map[string]config.CacheConfig) (*Registry, error) {
	options := make(map[string]*redis.Options, len(configs))

	for alias, cfg := range configs {
		if cfg.Backend != config.BackendRedis {
			return nil, fmt.Errorf("cache %q: unsupported backend %q", alias, cfg.Backend)
		}

		opts := &redis.Options{
			Addr:       cfg.Address,
			Password:   cfg.Password,
			DB:         cfg.DB,
			MaxRetries: -1,
		}

		if cfg.DialTimeout != "" {
			timeout, err := time.ParseDuration(cfg.DialTimeout)
			if err != nil {
				return nil, fmt.Errorf("cache %q: dial timeout: %w", alias, err)
			}
			opts.DialTimeout = timeout
		}

		options[alias] = opts
	}

	return &Registry{options: options}, nil
}

// CreateConnection returns a new, unshared connection for alias. No network
// I/O happens until the connection is used. The caller must Close it.
func (r *Registry) CreateConnection(alias string) (*Connection, error) {
	opts, ok := r.options[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
	}

	clientOpts := *opts

	return &Connection{
		alias:  alias,
		client: redis.NewClient(&clientOpts),
	}, nil
}

// Aliases lists the configured logical names in sorted order.
func (r *Registry) Aliases() []string {
	aliases := make([]string, 0, len(r.options))
	for alias := range r.options {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
