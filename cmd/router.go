package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angeloszaimis/dxruntime/internal/healthcheck"
	"github.com/angeloszaimis/dxruntime/internal/metrics"
)

func setupRouter(checker *healthcheck.Checker, metricsCollector *metrics.Collector, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandler(checker))
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", metricsCollector.Handler())

	return mux
}

type checkView struct {
	Resource  string  `json:"resource"`
	Name      string  `json:"name"`
	OK        bool    `json:"ok"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

type reportView struct {
	Healthy bool        `json:"healthy"`
	Checks  []checkView `json:"checks"`
}

func newReportView(report healthcheck.Report) reportView {
	view := reportView{Healthy: report.Healthy()}

	for _, res := range []healthcheck.Result{report.Database, report.Cache} {
		check := checkView{
			Resource:  string(res.Resource),
			Name:      res.Name,
			OK:        res.OK(),
			LatencyMS: float64(res.Latency.Microseconds()) / 1000,
		}
		if res.Err != nil {
			check.Error = res.Err.Error()
		}
		view.Checks = append(view.Checks, check)
	}

	return view
}

// healthHandler probes both resources on every request and answers 503 when
// either is unreachable.
func healthHandler(checker *healthcheck.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		report := checker.Run(r.Context())

		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(newReportView(report))
	}
}
