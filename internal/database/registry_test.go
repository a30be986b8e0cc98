package database_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/dxruntime/config"
	"github.com/angeloszaimis/dxruntime/internal/database"
	"github.com/angeloszaimis/dxruntime/pkg/logger"
)

var _ = Describe("Registry", func() {
	var (
		registry *database.Registry
		ctx      context.Context
		cancel   context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		registry = database.NewRegistry(map[string]config.DatabaseConfig{
			"default":   {Driver: config.DriverSQLite, DSN: ":memory:", MaxOpenConns: 2},
			"reporting": {Driver: config.DriverSQLite, DSN: ":memory:"},
			"warehouse": {Driver: config.DriverPostgres, DSN: "host=127.0.0.1 port=1 user=dx dbname=dx sslmode=disable connect_timeout=1"},
			"legacy":    {Driver: "oracle", DSN: "x"},
		}, logger.Discard())
	})

	AfterEach(func() {
		cancel()
		Expect(registry.Close()).To(Succeed())
	})

	Describe("Cursor", func() {
		It("should return a live connection for the default alias", func() {
			conn, err := registry.Cursor(ctx, "default")
			Expect(err).NotTo(HaveOccurred())
			Expect(conn).NotTo(BeNil())
			defer conn.Close()

			Expect(conn.PingContext(ctx)).To(Succeed())

			var one int
			Expect(conn.QueryRowContext(ctx, "SELECT 1").Scan(&one)).To(Succeed())
			Expect(one).To(Equal(1))
		})

		It("should fail for an unknown alias", func() {
			conn, err := registry.Cursor(ctx, "missing")
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, database.ErrUnknownAlias)).To(BeTrue())
			Expect(conn).To(BeNil())
		})

		It("should fail for an unsupported driver", func() {
			conn, err := registry.Cursor(ctx, "legacy")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported driver"))
			Expect(conn).To(BeNil())
		})

		It("should fail when the postgres server is unreachable", func() {
			conn, err := registry.Cursor(ctx, "warehouse")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("warehouse"))
			Expect(conn).To(BeNil())
		})
	})

	Describe("DB", func() {
		It("should reuse the handle for an alias", func() {
			first, err := registry.DB("default")
			Expect(err).NotTo(HaveOccurred())
			second, err := registry.DB("default")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeIdenticalTo(first))
		})

		It("should keep aliases separate", func() {
			def, err := registry.DB("default")
			Expect(err).NotTo(HaveOccurred())
			rep, err := registry.DB("reporting")
			Expect(err).NotTo(HaveOccurred())
			Expect(rep).NotTo(BeIdenticalTo(def))
		})

		It("should apply the pool size", func() {
			db, err := registry.DB("default")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Stats().MaxOpenConnections).To(Equal(2))
		})

		It("should open a postgres handle without dialing", func() {
			db, err := registry.DB("warehouse")
			Expect(err).NotTo(HaveOccurred())
			Expect(db).NotTo(BeNil())
		})

		It("should open a single handle under concurrent access", func() {
			var wg sync.WaitGroup
			results := make(chan any, 10)

			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					db, err := registry.DB("default")
					Expect(err).NotTo(HaveOccurred())
					results <- db
				}()
			}
			wg.Wait()
			close(results)

			first := <-results
			for db := range results {
				Expect(db).To(BeIdenticalTo(first))
			}
		})
	})

	Describe("Aliases", func() {
		It("should list every configured alias in order", func() {
			Expect(registry.Aliases()).To(Equal([]string{"default", "legacy", "reporting", "warehouse"}))
		})
	})

	Describe("Close", func() {
		It("should allow reopening after close", func() {
			first, err := registry.DB("default")
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Close()).To(Succeed())

			second, err := registry.DB("default")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).NotTo(BeIdenticalTo(first))
		})
	})
})
