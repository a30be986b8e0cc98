// Package httpserver runs the process's HTTP listener. Requests are bounded
// by a concurrency cap and an optional per-request timeout, and each one is
// written to the access log.
package httpserver
