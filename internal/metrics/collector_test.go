package metrics_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/angeloszaimis/dxruntime/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		registry  *prometheus.Registry
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Suppress logs in tests
		}))
		ctx, cancel = context.WithCancel(context.Background())
		registry = prometheus.NewRegistry()
		collector = metrics.NewCollector(100, log, metrics.WithRegistry(registry))
	})

	AfterEach(func() {
		cancel()
		time.Sleep(10 * time.Millisecond) // Allow goroutine to finish
	})

	Describe("NewCollector", func() {
		It("should register its metrics on the given registry", func() {
			collector.Start(ctx)
			collector.EventChannel() <- metrics.ProbeEvent{Resource: "database", Name: "default", OK: true}

			Eventually(func() int {
				n, _ := testutil.GatherAndCount(registry, "dxruntime_probe_checks_total")
				return n
			}).Should(Equal(1))
		})

		It("should honour a custom namespace", func() {
			reg := prometheus.NewRegistry()
			c := metrics.NewCollector(10, log, metrics.WithRegistry(reg), metrics.WithNamespace("custom"))
			c.Start(ctx)
			c.EventChannel() <- metrics.ProbeEvent{Resource: "cache", Name: "default", OK: true}

			Eventually(func() int {
				n, _ := testutil.GatherAndCount(reg, "custom_probe_up")
				return n
			}).Should(Equal(1))
		})
	})

	Describe("Start and event processing", func() {
		It("should record a successful probe", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.ProbeEvent{
				Resource:  "database",
				Name:      "default",
				Timestamp: time.Now(),
				Duration:  100 * time.Millisecond,
				OK:        true,
			}

			Eventually(func() int64 {
				return collector.Snapshot().TotalChecks
			}).Should(Equal(int64(1)))

			target := collector.Snapshot().Targets["database/default"]
			Expect(target.Healthy).To(BeTrue())
			Expect(target.AvgLatency).To(Equal(100 * time.Millisecond))
		})

		It("should mirror outcomes into prometheus", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.ProbeEvent{Resource: "cache", Name: "default", OK: true}
			collector.EventChannel() <- metrics.ProbeEvent{Resource: "cache", Name: "default", OK: false}

			Eventually(func() int64 {
				return collector.Snapshot().Targets["cache/default"].Checks
			}).Should(Equal(int64(2)))

			Expect(collector.Snapshot().Targets["cache/default"].Healthy).To(BeFalse())
			n, err := testutil.GatherAndCount(registry, "dxruntime_probe_checks_total")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
		})

		It("should drain events on context cancellation", func() {
			collector.Start(ctx)

			for i := 0; i < 5; i++ {
				collector.EventChannel() <- metrics.ProbeEvent{
					Resource: "database",
					Name:     "default",
					OK:       true,
				}
			}

			cancel()
			time.Sleep(20 * time.Millisecond)

			Expect(collector.Snapshot().Targets["database/default"].Checks).To(Equal(int64(5)))
		})
	})

	Describe("Handler", func() {
		It("should serve the snapshot as JSON", func() {
			collector.Start(ctx)
			collector.EventChannel() <- metrics.ProbeEvent{Resource: "database", Name: "default", OK: true}

			Eventually(func() int64 {
				return collector.Snapshot().TotalChecks
			}).Should(Equal(int64(1)))

			rec := httptest.NewRecorder()
			collector.Handler()(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			var snap metrics.Snapshot
			Expect(json.Unmarshal(rec.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.TotalChecks).To(Equal(int64(1)))
			Expect(snap.Targets).To(HaveKey("database/default"))
		})
	})
})
