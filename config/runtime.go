package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Environment variables read by Resolve.
const (
	EnvWorkers = "GUNICORN_WORKERS"
	EnvThreads = "GUNICORN_THREADS"
	EnvTimeout = "GUNICORN_TIMEOUT"
	EnvPort    = "PORT"
)

// Values substituted when a variable is absent.
const (
	DefaultWorkers = "3"
	DefaultThreads = "1"
	DefaultTimeout = "0"
	DefaultPort    = "8000"
)

// BindHost is not configurable: the server always listens on all interfaces.
const BindHost = "0.0.0.0"

// LogTarget names where a log stream is written. Only stdout is supported.
type LogTarget string

const LogTargetStdout LogTarget = "-"

// Source looks up raw environment values. The bool reports presence, so an
// empty value is distinguishable from an unset one.
type Source interface {
	Lookup(key string) (string, bool)
}

// MapSource is a Source backed by a plain map.
type MapSource map[string]string

func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

type envSource struct{}

func (envSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// EnvSource returns a Source reading the process environment.
func EnvSource() Source {
	return envSource{}
}

// RuntimeConfig holds the server concurrency parameters. It is resolved once
// at startup and passed around by value.
type RuntimeConfig struct {
	Workers     int       `json:"workers"`
	Threads     int       `json:"threads"`
	Timeout     int       `json:"timeout_seconds"`
	BindAddress string    `json:"bind_address"`
	AccessLog   LogTarget `json:"access_log"`
	ErrorLog    LogTarget `json:"error_log"`
}

// ConfigurationError reports an environment value that is present but
// cannot be used.
type ConfigurationError struct {
	Variable string
	Value    string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s=%q: %s", e.Variable, e.Value, e.Reason)
}

// Resolve derives a RuntimeConfig from src. Absent variables take their
// defaults; present ones must parse, otherwise a *ConfigurationError naming
// the variable is returned.
func Resolve(src Source) (RuntimeConfig, error) {
	workers, err := resolveCount(src, EnvWorkers, DefaultWorkers)
	if err != nil {
		return RuntimeConfig{}, err
	}

	threads, err := resolveCount(src, EnvThreads, DefaultThreads)
	if err != nil {
		return RuntimeConfig{}, err
	}

	timeout, err := resolveCount(src, EnvTimeout, DefaultTimeout)
	if err != nil {
		return RuntimeConfig{}, err
	}

	port, err := resolvePort(src)
	if err != nil {
		return RuntimeConfig{}, err
	}

	cfg := RuntimeConfig{
		Workers:     workers,
		Threads:     threads,
		Timeout:     timeout,
		BindAddress: BindHost + ":" + port,
		AccessLog:   LogTargetStdout,
		ErrorLog:    LogTargetStdout,
	}

	if err := cfg.Validate(); err != nil {
		return RuntimeConfig{}, fmt.Errorf("runtime config: %w", err)
	}

	return cfg, nil
}

// TimeoutDuration returns the request timeout. Zero means no timeout.
func (c RuntimeConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Concurrency is the number of requests the process serves at once.
func (c RuntimeConfig) Concurrency() int {
	return c.Workers * c.Threads
}

func (c RuntimeConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Workers, validation.Min(0)),
		validation.Field(&c.Threads, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Min(0)),
		validation.Field(&c.BindAddress,
			validation.Required,
			validation.By(validateHostPort),
		),
		validation.Field(&c.AccessLog,
			validation.Required,
			validation.In(LogTargetStdout),
		),
		validation.Field(&c.ErrorLog,
			validation.Required,
			validation.In(LogTargetStdout),
		),
	)
}

func lookup(src Source, key, fallback string) string {
	if raw, ok := src.Lookup(key); ok {
		return raw
	}
	return fallback
}

func resolveCount(src Source, key, fallback string) (int, error) {
	raw := lookup(src, key, fallback)

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ConfigurationError{Variable: key, Value: raw, Reason: "not an integer"}
	}
	if n < 0 {
		return 0, &ConfigurationError{Variable: key, Value: raw, Reason: "must not be negative"}
	}

	return n, nil
}

func resolvePort(src Source) (string, error) {
	raw := lookup(src, EnvPort, DefaultPort)

	n, err := strconv.Atoi(raw)
	if err != nil {
		return "", &ConfigurationError{Variable: EnvPort, Value: raw, Reason: "not an integer"}
	}
	if n < 1 || n > 65535 {
		return "", &ConfigurationError{Variable: EnvPort, Value: raw, Reason: "port out of range 1-65535"}
	}

	return raw, nil
}
