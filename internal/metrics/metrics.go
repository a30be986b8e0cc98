package metrics

import (
	"sort"
	"sync"
	"time"
)

// maxSamples bounds the latency history kept per target.
const maxSamples = 1000

type Metrics struct {
	mutex     sync.RWMutex
	checks    map[string]int64
	failures  map[string]int64
	latencies map[string][]time.Duration
	lastOK    map[string]bool
	lastCheck map[string]time.Time
	resources map[string]string
	names     map[string]string
	startTime time.Time
}

type Snapshot struct {
	TotalChecks   int64                    `json:"total_checks"`
	TotalFailures int64                    `json:"total_failures"`
	Uptime        time.Duration            `json:"uptime"`
	Targets       map[string]TargetMetrics `json:"targets"`
}

type TargetMetrics struct {
	Resource   string        `json:"resource"`
	Name       string        `json:"name"`
	Checks     int64         `json:"checks"`
	Failures   int64         `json:"failures"`
	Healthy    bool          `json:"healthy"`
	LastCheck  time.Time     `json:"last_check"`
	AvgLatency time.Duration `json:"avg_latency"`
	P50Latency time.Duration `json:"p50_latency"`
	P95Latency time.Duration `json:"p95_latency"`
	P99Latency time.Duration `json:"p99_latency"`
}

// TargetKey is the snapshot key for a resource's logical name.
func TargetKey(resource, name string) string {
	return resource + "/" + name
}

func (m *Metrics) RecordProbe(resource, name string, duration time.Duration, ok bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := TargetKey(resource, name)
	m.resources[key] = resource
	m.names[key] = name

	m.checks[key]++
	if !ok {
		m.failures[key]++
	}
	m.lastOK[key] = ok
	m.lastCheck[key] = time.Now()

	m.latencies[key] = append(m.latencies[key], duration)
	if len(m.latencies[key]) > maxSamples {
		m.latencies[key] = m.latencies[key][1:]
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:  time.Since(m.startTime),
		Targets: make(map[string]TargetMetrics, len(m.checks)),
	}

	for key, checks := range m.checks {
		snap.TotalChecks += checks
		snap.TotalFailures += m.failures[key]

		tm := TargetMetrics{
			Resource:  m.resources[key],
			Name:      m.names[key],
			Checks:    checks,
			Failures:  m.failures[key],
			Healthy:   m.lastOK[key],
			LastCheck: m.lastCheck[key],
		}

		durations := m.latencies[key]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			tm.AvgLatency = average(sorted)
			tm.P50Latency = percentile(sorted, 0.50)
			tm.P95Latency = percentile(sorted, 0.95)
			tm.P99Latency = percentile(sorted, 0.99)
		}

		snap.Targets[key] = tm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		checks:    make(map[string]int64),
		failures:  make(map[string]int64),
		latencies: make(map[string][]time.Duration),
		lastOK:    make(map[string]bool),
		lastCheck: make(map[string]time.Time),
		resources: make(map[string]string),
		names:     make(map[string]string),
		startTime: time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
