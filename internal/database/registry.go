package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/angeloszaimis/dxruntime/config"
)

// ErrUnknownAlias is returned for a logical name with no configuration.
var ErrUnknownAlias = errors.New("database: unknown alias")

// Registry opens database handles by logical alias. Handles are opened on
// first use and shared afterwards.
type Registry struct {
	mutex   sync.RWMutex
	configs map[string]config.DatabaseConfig
	handles map[string]*sql.DB
	logger  *slog.Logger
}

func NewRegistry(configs map[string]config.DatabaseConfig, logger *slog.Logger) *Registry {
	return &Registry{
		configs: configs,
		handles: make(map[string]*sql.DB),
		logger:  logger,
	}
}

// DB returns the pooled handle for alias, opening it if needed. Opening does
// not dial; the first connection is made when the pool is used.
func (r *Registry) DB(alias string) (*sql.DB, error) {
	r.mutex.RLock()
	db, exists := r.handles[alias]
	r.mutex.RUnlock()

	if exists {
		return db, nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have opened it
	if db, exists = r.handles[alias]; exists {
		return db, nil
	}

	cfg, ok := r.configs[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
	}

	db, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("database %q: %w", alias, err)
	}

	r.logger.Debug("Opened database handle",
		slog.String("alias", alias),
		slog.String("driver", cfg.Driver))

	r.handles[alias] = db
	return db, nil
}

// Cursor checks a single connection out of the alias's pool. The caller
// must Close it to return it to the pool.
func (r *Registry) Cursor(ctx context.Context, alias string) (*sql.Conn, error) {
	db, err := r.DB(alias)
	if err != nil {
		return nil, err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("database %q: connect: %w", alias, err)
	}

	return conn, nil
}

// Aliases lists the configured logical names in sorted order.
func (r *Registry) Aliases() []string {
	aliases := make([]string, 0, len(r.configs))
	for alias := range r.configs {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Close closes every handle opened so far.
func (r *Registry) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var errs []error
	for alias, db := range r.handles {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database %q: %w", alias, err))
		}
	}
	r.handles = make(map[string]*sql.DB)

	return errors.Join(errs...)
}

func open(cfg config.DatabaseConfig) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case config.DriverSQLite:
		db, err = sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
	case config.DriverPostgres:
		gormDB, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
			DisableAutomaticPing: true,
			Logger:               gormlogger.Discard,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db, err = gormDB.DB()
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
