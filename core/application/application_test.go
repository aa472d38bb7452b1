package application_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/canirun/canirun/core/application"
	"github.com/canirun/canirun/core/config"
	"github.com/canirun/canirun/pkg/vram"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const tinyModel = `- id: acme/tiny
  params: 1.5
  layers: 16
  num_attention_heads: 16
  hidden_size: 2048
  max_context_length: 4096
`

const labCard = `- name: Lab Card
  vendor: nvidia
  memory_gb: 48
  memory_bandwidth_gbs: 900
`

var _ = Describe("Application", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	newApp := func(opts ...config.AppOption) *Application {
		app, err := New(append([]config.AppOption{config.Offline}, opts...)...)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(app.Stop)
		return app
	}

	It("wires the services offline", func() {
		app := newApp()
		Expect(app.CompatibilityService()).ToNot(BeNil())
		Expect(app.MetricsService()).ToNot(BeNil())
		Expect(app.Registry()).ToNot(BeNil())

		spec, err := app.Resolver().Resolve(ctx, "meta-llama/Llama-3.1-8B-Instruct")
		Expect(err).ToNot(HaveOccurred())
		Expect(spec.Source).To(Equal(vram.SourceSeed))

		_, err = app.Catalog().Find(ctx, "NVIDIA GeForce RTX 4090")
		Expect(err).ToNot(HaveOccurred())
	})

	It("skips metrics when disabled", func() {
		app := newApp(config.DisableMetricsEndpoint)
		Expect(app.MetricsService()).To(BeNil())
		Expect(app.Registry()).To(BeNil())
	})

	It("registers models and accelerators given at startup", func() {
		app := newApp(
			config.WithCustomModels(vram.ModelSpec{ID: "acme/startup", Params: 2, Layers: 20, NumAttentionHeads: 16, NumKVHeads: 16, HiddenSize: 2048}),
			config.WithCustomAccelerators(vram.AcceleratorSpec{Name: "Lab Card", MemoryGB: 48}),
		)
		spec, err := app.Resolver().Resolve(ctx, "acme/startup")
		Expect(err).ToNot(HaveOccurred())
		Expect(spec.Source).To(Equal(vram.SourceCustom))

		acc, err := app.Catalog().Find(ctx, "Lab Card")
		Expect(err).ToNot(HaveOccurred())
		Expect(acc.MemoryGB).To(Equal(48.0))
	})

	It("rejects invalid startup models", func() {
		_, err := New(config.Offline, config.WithCustomModels(vram.ModelSpec{ID: "broken"}))
		Expect(err).To(MatchError(vram.ErrInvalidModel))
	})

	It("persists fetched catalogs in the cache dir", func() {
		dir := GinkgoT().TempDir()
		list := filepath.Join(dir, "catalog.yaml")
		Expect(os.WriteFile(list, []byte(labCard), 0600)).To(Succeed())

		app := newApp(config.WithCacheDir(dir), config.WithAcceleratorCatalogURL("file://"+list))
		acc, err := app.Catalog().Find(ctx, "Lab Card")
		Expect(err).ToNot(HaveOccurred())
		Expect(acc.MemoryGB).To(Equal(48.0))
		Expect(filepath.Join(dir, "accelerators.json")).To(BeAnExistingFile())
	})

	It("ignores remote catalogs offline", func() {
		app := newApp(config.WithAcceleratorCatalogURL("http://127.0.0.1:1/catalog.yaml"))
		_, err := app.Catalog().Find(ctx, "NVIDIA GeForce RTX 4090")
		Expect(err).ToNot(HaveOccurred())
	})

	Context("with a dynamic config dir", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		write := func(name, content string) {
			Expect(os.WriteFile(filepath.Join(dir, name), []byte(content), 0600)).To(Succeed())
		}

		dynamicApp := func() *Application {
			return newApp(
				config.WithDynamicConfigDir(dir),
				config.WithDynamicConfigDirPollInterval(50*time.Millisecond),
			)
		}

		It("loads custom files present at startup", func() {
			write("custom_models.yaml", tinyModel)
			write("custom_accelerators.yaml", labCard)
			app := dynamicApp()

			spec, err := app.Resolver().Resolve(ctx, "acme/tiny")
			Expect(err).ToNot(HaveOccurred())
			Expect(spec.Name).To(Equal("tiny"))
			Expect(spec.NumKVHeads).To(Equal(16))

			acc, err := app.Catalog().Find(ctx, "lab card")
			Expect(err).ToNot(HaveOccurred())
			Expect(acc.MemoryBandwidthGBs).To(Equal(900.0))
		})

		It("picks up changes while running", func() {
			app := dynamicApp()
			_, err := app.Resolver().Resolve(ctx, "acme/tiny")
			Expect(err).To(HaveOccurred())

			write("custom_models.yaml", tinyModel)
			Eventually(func() error {
				_, err := app.Resolver().Resolve(ctx, "acme/tiny")
				return err
			}).WithTimeout(5 * time.Second).Should(Succeed())

			Expect(os.Remove(filepath.Join(dir, "custom_models.yaml"))).To(Succeed())
			Eventually(func() error {
				_, err := app.Resolver().Resolve(ctx, "acme/tiny")
				return err
			}).WithTimeout(5 * time.Second).ShouldNot(Succeed())
		})

		It("keeps the previous models when the file is invalid", func() {
			write("custom_models.yaml", tinyModel)
			app := dynamicApp()
			write("custom_models.yaml", "- id: acme/tiny\n  params: 0\n")
			Consistently(func() error {
				_, err := app.Resolver().Resolve(ctx, "acme/tiny")
				return err
			}).WithTimeout(300 * time.Millisecond).Should(Succeed())
		})

		It("applies runtime settings", func() {
			write("runtime_settings.json", `{"default_quantization":"q8_0","default_context_length":2048}`)
			app := dynamicApp()
			Expect(app.ApplicationConfig().DefaultQuantization).To(Equal(vram.QuantQ8_0))
			Expect(app.ApplicationConfig().DefaultContextLength).To(Equal(2048))
		})
	})
})
