package config

import (
	"fmt"

	"github.com/canirun/canirun/pkg/vram"
)

// RuntimeSettings are the settings that can change while the server runs, read from
// runtime_settings.json in the dynamic config dir.
//
// All fields are pointers to distinguish between "not set" and "set to zero/false value".
type RuntimeSettings struct {
	DefaultQuantization   *string `json:"default_quantization,omitempty"`
	DefaultContextLength  *int    `json:"default_context_length,omitempty"`
	AcceleratorCatalogURL *string `json:"accelerator_catalog_url,omitempty"`
}

func ptr[T any](v T) *T {
	return &v
}

// Defaults returns the quantization and context length used when a request leaves
// them out.
func (o *ApplicationConfig) Defaults() (vram.Quantization, int) {
	o.runtimeMu.RLock()
	defer o.runtimeMu.RUnlock()
	return o.DefaultQuantization, o.DefaultContextLength
}

// CatalogURL returns the configured accelerator catalog location.
func (o *ApplicationConfig) CatalogURL() string {
	o.runtimeMu.RLock()
	defer o.runtimeMu.RUnlock()
	return o.AcceleratorCatalogURL
}

// ToRuntimeSettings snapshots the current values.
func (o *ApplicationConfig) ToRuntimeSettings() RuntimeSettings {
	o.runtimeMu.RLock()
	defer o.runtimeMu.RUnlock()
	return RuntimeSettings{
		DefaultQuantization:   ptr(string(o.DefaultQuantization)),
		DefaultContextLength:  ptr(o.DefaultContextLength),
		AcceleratorCatalogURL: ptr(o.AcceleratorCatalogURL),
	}
}

// ApplyRuntimeSettings validates every set field first and only then applies them, so a
// bad file leaves the config untouched. It reports whether the accelerator catalog
// source changed and has to be rebuilt.
func (o *ApplicationConfig) ApplyRuntimeSettings(rs RuntimeSettings) (catalogChanged bool, err error) {
	var q vram.Quantization
	if rs.DefaultQuantization != nil {
		if q, err = vram.ParseQuantization(*rs.DefaultQuantization); err != nil {
			return false, err
		}
	}
	if rs.DefaultContextLength != nil && *rs.DefaultContextLength < 0 {
		return false, fmt.Errorf("default_context_length must not be negative, got %d", *rs.DefaultContextLength)
	}

	o.runtimeMu.Lock()
	defer o.runtimeMu.Unlock()
	if rs.DefaultQuantization != nil {
		o.DefaultQuantization = q
	}
	if rs.DefaultContextLength != nil {
		o.DefaultContextLength = *rs.DefaultContextLength
	}
	if rs.AcceleratorCatalogURL != nil && o.AcceleratorCatalogURL != *rs.AcceleratorCatalogURL {
		o.AcceleratorCatalogURL = *rs.AcceleratorCatalogURL
		catalogChanged = true
	}
	return catalogChanged, nil
}
