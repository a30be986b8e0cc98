package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/dxruntime/config"
)

var _ = Describe("Commands", func() {
	var out *bytes.Buffer

	execute := func(src config.Source, args ...string) error {
		root := newRootCmd(src)
		root.SetOut(out)
		root.SetErr(out)
		root.SetArgs(args)
		return root.ExecuteContext(context.Background())
	}

	BeforeEach(func() {
		out = &bytes.Buffer{}
	})

	Describe("config", func() {
		It("prints the resolved runtime settings as JSON", func() {
			err := execute(config.MapSource{
				config.EnvWorkers: "8",
				config.EnvThreads: "2",
				config.EnvPort:    "9000",
			}, "config")
			Expect(err).NotTo(HaveOccurred())

			var printed map[string]any
			Expect(json.Unmarshal(out.Bytes(), &printed)).To(Succeed())
			Expect(printed).To(HaveKeyWithValue("workers", BeNumerically("==", 8)))
			Expect(printed).To(HaveKeyWithValue("threads", BeNumerically("==", 2)))
			Expect(printed).To(HaveKeyWithValue("timeout_seconds", BeNumerically("==", 0)))
			Expect(printed).To(HaveKeyWithValue("bind_address", "0.0.0.0:9000"))
			Expect(printed).To(HaveKeyWithValue("access_log", "-"))
			Expect(printed).To(HaveKeyWithValue("error_log", "-"))
		})

		It("fails on an invalid variable", func() {
			err := execute(config.MapSource{config.EnvTimeout: "soon"}, "config")

			var cfgErr *config.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Variable).To(Equal(config.EnvTimeout))
		})
	})

	Describe("check", func() {
		var (
			tempDir string
			server  *miniredis.Miniredis
		)

		writeConfig := func(cacheAddr string) string {
			path := filepath.Join(tempDir, "config.yaml")
			content := fmt.Sprintf(`
logging:
  level: "error"
health_check:
  timeout: "2s"
databases:
  default:
    driver: "sqlite"
    dsn: ":memory:"
caches:
  default:
    backend: "redis"
    address: %q
    dial_timeout: "500ms"
`, cacheAddr)
			Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
			return path
		}

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "cmd-test-*")
			Expect(err).NotTo(HaveOccurred())

			server, err = miniredis.Run()
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			server.Close()
			os.RemoveAll(tempDir)
		})

		It("succeeds when both resources answer", func() {
			path := writeConfig(server.Addr())

			err := execute(config.MapSource{}, "check", "--config", path)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(ContainSubstring("database"))
			Expect(out.String()).To(ContainSubstring("cache"))
			Expect(out.String()).NotTo(ContainSubstring("FAIL"))
		})

		It("fails when the cache is unreachable", func() {
			path := writeConfig("127.0.0.1:1")

			err := execute(config.MapSource{}, "check", "--config", path)
			Expect(errors.Is(err, errUnhealthy)).To(BeTrue())
			Expect(out.String()).To(ContainSubstring("FAIL"))
		})

		It("reports the failing resource by name", func() {
			path := writeConfig("127.0.0.1:1")

			err := execute(config.MapSource{}, "check", "--config", path)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(`cache "default" unreachable`))
		})

		It("fails for a logical name with no configuration", func() {
			path := writeConfig(server.Addr())

			err := execute(config.MapSource{}, "check", "--config", path, "--name", "reporting")
			Expect(errors.Is(err, errUnhealthy)).To(BeTrue())
		})

		It("stops before probing on an invalid runtime variable", func() {
			path := writeConfig(server.Addr())

			err := execute(config.MapSource{config.EnvWorkers: "-2"}, "check", "--config", path)

			var cfgErr *config.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(out.String()).NotTo(ContainSubstring("database"))
		})
	})
})
