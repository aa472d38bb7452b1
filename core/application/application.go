package application

import (
	"github.com/canirun/canirun/core/config"
	"github.com/canirun/canirun/core/services"
	"github.com/canirun/canirun/pkg/gpudb"
	"github.com/canirun/canirun/pkg/modelspec"
	prom "github.com/prometheus/client_golang/prometheus"
)

type Application struct {
	applicationConfig *config.ApplicationConfig
	startupConfig     *config.ApplicationConfig

	catalog       *gpudb.Catalog
	resolver      *modelspec.Resolver
	registry      *prom.Registry
	metrics       *services.MetricsService
	compatibility *services.CompatibilityService
	watcher       *configFileHandler
}

func newApplication(appConfig *config.ApplicationConfig) *Application {
	return &Application{
		applicationConfig: appConfig,
	}
}

func (a *Application) ApplicationConfig() *config.ApplicationConfig {
	return a.applicationConfig
}

func (a *Application) Catalog() *gpudb.Catalog {
	return a.catalog
}

func (a *Application) Resolver() *modelspec.Resolver {
	return a.resolver
}

// MetricsService is nil when metrics are disabled.
func (a *Application) MetricsService() *services.MetricsService {
	return a.metrics
}

// Registry is what /metrics serves, nil when metrics are disabled.
func (a *Application) Registry() *prom.Registry {
	return a.registry
}

func (a *Application) CompatibilityService() *services.CompatibilityService {
	return a.compatibility
}

// Stop releases the config watcher and flushes metrics.
func (a *Application) Stop() error {
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			return err
		}
	}
	if a.metrics != nil {
		return a.metrics.Shutdown()
	}
	return nil
}
