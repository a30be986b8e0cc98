package config

import (
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const BackendRedis = "redis"

// DefaultAlias is the logical name every deployment must configure for both
// its database and its cache.
const DefaultAlias = "default"

type ServerConfig struct {
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type HealthCheckConfig struct {
	Timeout string `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type CacheConfig struct {
	Backend     string `mapstructure:"backend"`
	Address     string `mapstructure:"address"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	DialTimeout string `mapstructure:"dial_timeout"`
}

type Config struct {
	Server      ServerConfig              `mapstructure:"server"`
	Logging     LoggingConfig             `mapstructure:"logging"`
	HealthCheck HealthCheckConfig         `mapstructure:"health_check"`
	Databases   map[string]DatabaseConfig `mapstructure:"databases"`
	Caches      map[string]CacheConfig    `mapstructure:"caches"`
}

// Load reads config.yaml from path, or from ./config and . when path is
// empty, layers environment variables on top and validates the result.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("health_check.timeout", "5s")
	v.SetDefault("databases.default.driver", DriverSQLite)
	v.SetDefault("databases.default.dsn", "file:dx.sqlite3")
	v.SetDefault("databases.default.max_open_conns", 4)
	v.SetDefault("caches.default.backend", BackendRedis)
	v.SetDefault("caches.default.address", "localhost:6379")
	v.SetDefault("caches.default.password", "")
	v.SetDefault("caches.default.db", 0)
	v.SetDefault("caches.default.dial_timeout", "5s")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Debug("config file not found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// HealthCheckTimeout returns the per-check timeout. Validate guarantees it
// parses.
func (c *Config) HealthCheckTimeout() time.Duration {
	d, _ := time.ParseDuration(c.HealthCheck.Timeout)
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Timeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Databases,
			validation.Required,
			validation.By(func(value interface{}) error {
				dbs, ok := value.(map[string]DatabaseConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a database map")
				}
				if _, ok := dbs[DefaultAlias]; !ok {
					return validation.NewError("validation_missing_default", "a \"default\" database is required")
				}
				return nil
			}),
			validation.Each(validation.By(validateDatabaseConfig)),
		),
		validation.Field(&c.Caches,
			validation.Required,
			validation.By(func(value interface{}) error {
				caches, ok := value.(map[string]CacheConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a cache map")
				}
				if _, ok := caches[DefaultAlias]; !ok {
					return validation.NewError("validation_missing_default", "a \"default\" cache is required")
				}
				return nil
			}),
			validation.Each(validation.By(validateCacheConfig)),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateDatabaseConfig(value interface{}) error {
	db, ok := value.(DatabaseConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a DatabaseConfig")
	}

	return validation.ValidateStruct(&db,
		validation.Field(&db.Driver,
			validation.Required,
			validation.In(DriverSQLite, DriverPostgres),
		),
		validation.Field(&db.DSN, validation.Required),
		validation.Field(&db.MaxOpenConns, validation.Min(0)),
	)
}

func validateCacheConfig(value interface{}) error {
	cc, ok := value.(CacheConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a CacheConfig")
	}

	return validation.ValidateStruct(&cc,
		validation.Field(&cc.Backend,
			validation.Required,
			validation.In(BackendRedis),
		),
		validation.Field(&cc.Address,
			validation.Required,
			validation.By(validateHostPort),
		),
		validation.Field(&cc.DB, validation.Min(0)),
		validation.Field(&cc.DialTimeout, validation.When(cc.DialTimeout != "", validation.By(validateDuration))),
	)
}
