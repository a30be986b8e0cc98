// Package metrics collects connectivity probe results.
//
// It uses a channel-based event pipeline so probes never block on metrics
// bookkeeping. For every probed target (a resource and its logical name) it
// tracks:
//   - Probe counts and failure counts
//   - The outcome of the most recent probe
//   - Probe latency with percentile calculations (P50, P95, P99)
//
// Every event is also mirrored into Prometheus: a checks counter partitioned
// by result, a latency histogram and an up gauge.
//
// Example usage:
//
//	collector := metrics.NewCollector(100, logger, metrics.WithRegistry(reg))
//	collector.Start(ctx)
//
//	collector.EventChannel() <- metrics.ProbeEvent{
//		Resource: "database",
//		Name:     "default",
//		Duration: 3 * time.Millisecond,
//		OK:       true,
//	}
//
//	snapshot := collector.Snapshot()
//
// On shutdown the collector drains buffered events before exiting.
package metrics
