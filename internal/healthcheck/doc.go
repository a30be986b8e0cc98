// Package healthcheck probes the external resources a deployment depends on.
// A Checker asks a database registry for a cursor and a cache registry for a
// connection under one logical name (by default "default"), pings each, and
// reports a Result per resource. The two probes are independent: either may
// fail without affecting the other, and neither is retried.
package healthcheck
