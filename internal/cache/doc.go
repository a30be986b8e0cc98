// Package cache creates Redis connections by logical alias. Each call to
// CreateConnection yields a fresh client, so probes never share state with
// long-lived application clients.
package cache
