package config

import (
	"context"
	"sync"
	"time"

	"github.com/canirun/canirun/pkg/vram"
)

type ApplicationConfig struct {
	Context context.Context
	Debug   bool

	APIAddress         string
	CORS               bool
	CORSAllowOrigins   string
	OpaqueErrors       bool
	DisableMetrics     bool
	RequestBodyLimitKB int

	// CacheDir holds the persistent catalog and model caches. Empty keeps them in memory.
	CacheDir                      string
	DynamicConfigsDir             string
	DynamicConfigsDirPollInterval time.Duration

	HubURL                string
	HFToken               string
	Offline               bool
	AcceleratorCatalogURL string
	CatalogTTL            time.Duration
	ModelTTL              time.Duration

	// DefaultQuantization, DefaultContextLength and AcceleratorCatalogURL change at
	// runtime; read them through Defaults and CatalogURL once the app is running.
	DefaultQuantization  vram.Quantization
	DefaultContextLength int

	runtimeMu sync.RWMutex

	CustomModels       []vram.ModelSpec
	CustomAccelerators []vram.AcceleratorSpec
}

type AppOption func(*ApplicationConfig)

func NewApplicationConfig(o ...AppOption) *ApplicationConfig {
	opt := &ApplicationConfig{
		Context:             context.Background(),
		APIAddress:          ":8080",
		RequestBodyLimitKB:  256,
		CatalogTTL:          7 * 24 * time.Hour,
		ModelTTL:            24 * time.Hour,
		DefaultQuantization: vram.DefaultQuantization,
	}
	for _, oo := range o {
		oo(opt)
	}
	return opt
}

func WithContext(ctx context.Context) AppOption {
	return func(o *ApplicationConfig) {
		o.Context = ctx
	}
}

func WithDebug(debug bool) AppOption {
	return func(o *ApplicationConfig) {
		o.Debug = debug
	}
}

func WithAPIAddress(address string) AppOption {
	return func(o *ApplicationConfig) {
		o.APIAddress = address
	}
}

func WithCors(b bool) AppOption {
	return func(o *ApplicationConfig) {
		o.CORS = b
	}
}

func WithCorsAllowOrigins(b string) AppOption {
	return func(o *ApplicationConfig) {
		o.CORSAllowOrigins = b
	}
}

func WithOpaqueErrors(opaque bool) AppOption {
	return func(o *ApplicationConfig) {
		o.OpaqueErrors = opaque
	}
}

var DisableMetricsEndpoint AppOption = func(o *ApplicationConfig) {
	o.DisableMetrics = true
}

func WithRequestBodyLimitKB(limit int) AppOption {
	return func(o *ApplicationConfig) {
		o.RequestBodyLimitKB = limit
	}
}

func WithCacheDir(dir string) AppOption {
	return func(o *ApplicationConfig) {
		o.CacheDir = dir
	}
}

func WithDynamicConfigDir(dynamicConfigsDir string) AppOption {
	return func(o *ApplicationConfig) {
		o.DynamicConfigsDir = dynamicConfigsDir
	}
}

func WithDynamicConfigDirPollInterval(interval time.Duration) AppOption {
	return func(o *ApplicationConfig) {
		o.DynamicConfigsDirPollInterval = interval
	}
}

func WithHubURL(url string) AppOption {
	return func(o *ApplicationConfig) {
		o.HubURL = url
	}
}

func WithHFToken(token string) AppOption {
	return func(o *ApplicationConfig) {
		o.HFToken = token
	}
}

// Offline disables every remote lookup: models resolve from the seed and custom
// catalogs only, accelerators from the built-in table.
var Offline AppOption = func(o *ApplicationConfig) {
	o.Offline = true
}

func WithAcceleratorCatalogURL(url string) AppOption {
	return func(o *ApplicationConfig) {
		o.AcceleratorCatalogURL = url
	}
}

func WithCatalogTTL(ttl time.Duration) AppOption {
	return func(o *ApplicationConfig) {
		o.CatalogTTL = ttl
	}
}

func WithModelTTL(ttl time.Duration) AppOption {
	return func(o *ApplicationConfig) {
		o.ModelTTL = ttl
	}
}

func WithDefaultQuantization(q vram.Quantization) AppOption {
	return func(o *ApplicationConfig) {
		if q != "" {
			o.DefaultQuantization = q
		}
	}
}

func WithDefaultContextLength(n int) AppOption {
	return func(o *ApplicationConfig) {
		o.DefaultContextLength = n
	}
}

func WithCustomModels(models ...vram.ModelSpec) AppOption {
	return func(o *ApplicationConfig) {
		o.CustomModels = append(o.CustomModels, models...)
	}
}

func WithCustomAccelerators(accelerators ...vram.AcceleratorSpec) AppOption {
	return func(o *ApplicationConfig) {
		o.CustomAccelerators = append(o.CustomAccelerators, accelerators...)
	}
}
