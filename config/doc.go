// Package config resolves process configuration. Resolve derives the server
// concurrency parameters (workers, threads, timeout, bind address) from
// environment variables with fixed defaults, and Load reads the application
// settings (databases, caches, logging) from YAML and the environment.
package config
