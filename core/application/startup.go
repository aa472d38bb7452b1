package application

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/canirun/canirun/core/config"
	"github.com/canirun/canirun/core/services"
	"github.com/canirun/canirun/internal"
	"github.com/canirun/canirun/pkg/cache"
	"github.com/canirun/canirun/pkg/downloader"
	"github.com/canirun/canirun/pkg/gpudb"
	hfapi "github.com/canirun/canirun/pkg/huggingface-api"
	"github.com/canirun/canirun/pkg/modelspec"
	"github.com/canirun/canirun/pkg/vram"
	"github.com/canirun/canirun/pkg/xsysinfo"
	"github.com/mudler/xlog"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func New(opts ...config.AppOption) (*Application, error) {
	options := config.NewApplicationConfig(opts...)

	application := newApplication(options)
	// dynamic config files merge over the startup values
	application.startupConfig = config.NewApplicationConfig(opts...)

	xlog.Info("Starting canirun", "version", internal.PrintableVersion(), "offline", options.Offline, "cacheDir", options.CacheDir)

	if err := application.start(); err != nil {
		return nil, err
	}

	if options.DynamicConfigsDir != "" {
		if err := os.MkdirAll(options.DynamicConfigsDir, 0750); err != nil {
			return nil, fmt.Errorf("unable to create the dynamic config dir: %w", err)
		}
		configHandler := newConfigFileHandler(application)
		if err := configHandler.Watch(); err != nil {
			xlog.Error("error establishing configuration directory watcher", "error", err)
		}
		application.watcher = configHandler
	}

	return application, nil
}

func (a *Application) start() error {
	options := a.applicationConfig

	catalogCache, modelCache, err := newCaches(options)
	if err != nil {
		return err
	}

	a.catalog = gpudb.NewCatalog(catalogSource(options), catalogCache)
	a.catalog.SetCustom(options.CustomAccelerators)

	var hub modelspec.HubClient
	if !options.Offline {
		clientOpts := []hfapi.ClientOption{hfapi.WithToken(options.HFToken)}
		if options.HubURL != "" {
			clientOpts = append(clientOpts, hfapi.WithBaseURL(options.HubURL))
		}
		hub = hfapi.NewClient(clientOpts...)
	}
	for _, m := range options.CustomModels {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	a.resolver = modelspec.NewResolver(hub, modelCache)
	a.resolver.SetCustom(options.CustomModels)

	if !options.DisableMetrics {
		a.registry = prom.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := services.NewMetricsService(a.registry)
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
		a.metrics = metrics
	}

	a.compatibility = services.NewCompatibilityService(options, a.catalog, a.resolver, xsysinfo.DetectHardware, a.metrics)
	return nil
}

func catalogSource(options *config.ApplicationConfig) gpudb.Source {
	url := options.CatalogURL()
	if url == "" {
		return gpudb.BuiltinSource{}
	}
	// local catalogs stay readable offline
	if options.Offline && !downloader.URI(url).LooksLikeLocal() {
		return gpudb.BuiltinSource{}
	}
	return gpudb.NewRemoteSource(url)
}

func newCaches(options *config.ApplicationConfig) (cache.Cache[[]vram.AcceleratorSpec], cache.Cache[vram.ModelSpec], error) {
	if options.CacheDir == "" {
		return cache.NewMemory[[]vram.AcceleratorSpec](options.CatalogTTL), cache.NewMemory[vram.ModelSpec](options.ModelTTL), nil
	}

	catalogCache, err := cache.NewFile[[]vram.AcceleratorSpec](filepath.Join(options.CacheDir, "accelerators.json"), options.CatalogTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open the accelerator cache: %w", err)
	}
	modelCache, err := cache.NewFile[vram.ModelSpec](filepath.Join(options.CacheDir, "models.json"), options.ModelTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open the model cache: %w", err)
	}
	return catalogCache, modelCache, nil
}
