package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/canirun/canirun/core/application"
	cliContext "github.com/canirun/canirun/core/cli/context"
	"github.com/canirun/canirun/core/config"
	"github.com/canirun/canirun/core/schema"
	"github.com/canirun/canirun/pkg/signals"
	"github.com/canirun/canirun/pkg/vram"
)

// AppFlags configure where model and accelerator data come from.
type AppFlags struct {
	HubURL                   string        `env:"CANIRUN_HUB_URL,HF_ENDPOINT" help:"Base URL of the HuggingFace hub" group:"sources"`
	HFToken                  string        `env:"CANIRUN_HF_TOKEN,HF_TOKEN" help:"HuggingFace token, needed for gated models" group:"sources"`
	AcceleratorCatalogURL    string        `env:"CANIRUN_ACCELERATOR_CATALOG_URL" help:"URL of a YAML accelerator catalog, the built-in one is used when empty" group:"sources"`
	Offline                  bool          `env:"CANIRUN_OFFLINE" help:"Never query remote sources, only built-in and custom data is used" group:"sources"`
	CacheDir                 string        `env:"CANIRUN_CACHE_DIR" type:"path" default:"${cachepath}" help:"Directory for cached catalog and model lookups, empty keeps them in memory" group:"storage"`
	ConfigDir                string        `env:"CANIRUN_CONFIG_DIR" type:"path" default:"${configpath}" help:"Directory with custom_models.yaml, custom_accelerators.yaml and runtime_settings.json" group:"storage"`
	ConfigDirPollInterval    time.Duration `env:"CANIRUN_CONFIG_DIR_POLL_INTERVAL" help:"Typically the config dir picks up changes automatically, but if your system has broken fsnotify events, set this to an interval to poll it (example: 1m)" group:"storage"`
	DefaultContextLength     int           `env:"CANIRUN_CONTEXT_LENGTH" help:"Default context length, the model maximum capped at 4096 when unset" group:"defaults"`
	DefaultQuantizationLevel string        `name:"default-quant" env:"CANIRUN_QUANTIZATION" default:"Q4_K_M" help:"Default quantization level" group:"defaults"`
}

func (f *AppFlags) options(ctx *cliContext.Context) ([]config.AppOption, error) {
	var quant vram.Quantization
	if f.DefaultQuantizationLevel != "" {
		q, err := vram.ParseQuantization(f.DefaultQuantizationLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid --default-quant: %w", err)
		}
		quant = q
	}

	opts := []config.AppOption{
		config.WithContext(context.Background()),
		config.WithDebug(ctx.IsDebug()),
		config.WithHubURL(f.HubURL),
		config.WithHFToken(f.HFToken),
		config.WithAcceleratorCatalogURL(f.AcceleratorCatalogURL),
		config.WithCacheDir(f.CacheDir),
		config.WithDynamicConfigDir(f.ConfigDir),
		config.WithDynamicConfigDirPollInterval(f.ConfigDirPollInterval),
		config.WithDefaultContextLength(f.DefaultContextLength),
		config.WithDefaultQuantization(quant),
	}
	if f.Offline {
		opts = append(opts, config.Offline)
	}
	return opts, nil
}

// HardwareFlags select the machine a model is checked against.
type HardwareFlags struct {
	GPU      string   `short:"g" help:"Accelerator name from the catalog, e.g. \"RTX 4090\" or \"Apple M3 Max (64GB)\"" group:"hardware"`
	GPUCount int      `help:"Number of identical accelerators" group:"hardware"`
	RAM      float64  `help:"System RAM in GB" group:"hardware"`
	Unified  bool     `help:"Treat the machine as unified memory" group:"hardware"`
	VRAM     *float64 `name:"vram" help:"Override the accelerator memory in GB" group:"hardware"`
	Detect   bool     `help:"Use the hardware of this machine" group:"hardware"`
}

func (f *HardwareFlags) request() schema.HardwareRequest {
	req := schema.HardwareRequest{
		Accelerator:      f.GPU,
		AcceleratorCount: f.GPUCount,
		SystemMemoryGB:   f.RAM,
		UnifiedMemory:    f.Unified,
		MemoryOverrideGB: f.VRAM,
		// nothing selected means this machine
		Detect: f.Detect || (f.GPU == "" && !f.Unified && f.RAM == 0),
	}
	return req
}

// commandContext is cancelled on Ctrl-C so in-flight hub and GGUF reads stop.
func commandContext() (context.Context, context.CancelFunc) {
	return signals.NotifyContext(context.Background())
}

// newApp is the application for a one-shot command. The caller stops it.
func newApp(ctx *cliContext.Context, flags *AppFlags, extra ...config.AppOption) (*application.Application, error) {
	opts, err := flags.options(ctx)
	if err != nil {
		return nil, err
	}
	return application.New(append(opts, extra...)...)
}
