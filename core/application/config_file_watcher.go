package application

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/canirun/canirun/pkg/gpudb"
	"github.com/canirun/canirun/pkg/modelspec"
	"github.com/canirun/canirun/pkg/vram"
	"github.com/fsnotify/fsnotify"
	"github.com/mudler/xlog"
)

const (
	customModelsFile       = "custom_models.yaml"
	customAcceleratorsFile = "custom_accelerators.yaml"
	runtimeSettingsFile    = "runtime_settings.json"
)

type fileHandler func(fileContent []byte, app *Application) error

type configFileHandler struct {
	handlers map[string]fileHandler

	watcher *fsnotify.Watcher
	stop    chan struct{}
	once    sync.Once

	app *Application
}

func newConfigFileHandler(app *Application) *configFileHandler {
	c := &configFileHandler{
		handlers: make(map[string]fileHandler),
		stop:     make(chan struct{}),
		app:      app,
	}
	for file, handler := range map[string]fileHandler{
		customModelsFile:       readCustomModels,
		customAcceleratorsFile: readCustomAccelerators,
		runtimeSettingsFile:    readRuntimeSettings,
	} {
		if err := c.Register(file, handler, true); err != nil {
			xlog.Error("unable to register config file handler", "error", err, "file", file)
		}
	}
	return c
}

func (c *configFileHandler) Register(filename string, handler fileHandler, runNow bool) error {
	_, ok := c.handlers[filename]
	if ok {
		return fmt.Errorf("handler already registered for file %s", filename)
	}
	c.handlers[filename] = handler
	if runNow {
		c.callHandler(filename, handler)
	}
	return nil
}

func (c *configFileHandler) callHandler(filename string, handler fileHandler) {
	rootedFilePath := filepath.Join(c.app.applicationConfig.DynamicConfigsDir, filepath.Clean(filename))
	xlog.Debug("reading file for dynamic config update", "filename", rootedFilePath)
	fileContent, err := os.ReadFile(rootedFilePath)
	if err != nil && !os.IsNotExist(err) {
		xlog.Error("could not read file", "error", err, "filename", rootedFilePath)
	}

	if err = handler(fileContent, c.app); err != nil {
		xlog.Error("failed to apply dynamic config update", "error", err, "filename", rootedFilePath)
	}
}

func (c *configFileHandler) Watch() error {
	configWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	c.watcher = configWatcher

	if interval := c.app.applicationConfig.DynamicConfigsDirPollInterval; interval > 0 {
		xlog.Debug("Poll interval set, falling back to polling for configuration changes", "interval", interval)
		ticker := time.NewTicker(interval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					for file, handler := range c.handlers {
						c.callHandler(file, handler)
					}
				case <-c.stop:
					return
				}
			}
		}()
	}

	go func() {
		for {
			select {
			case event, ok := <-c.watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					handler, ok := c.handlers[path.Base(event.Name)]
					if !ok {
						continue
					}
					c.callHandler(filepath.Base(event.Name), handler)
				}
			case err, ok := <-c.watcher.Errors:
				if !ok {
					return
				}
				xlog.Error("config watcher error received", "error", err)
			}
		}
	}()

	if err := c.watcher.Add(c.app.applicationConfig.DynamicConfigsDir); err != nil {
		return fmt.Errorf("unable to create a watcher on the configuration directory: %w", err)
	}
	return nil
}

func (c *configFileHandler) Stop() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		if c.watcher != nil {
			err = c.watcher.Close()
		}
	})
	return err
}

// readCustomModels merges custom_models.yaml over the models given at startup. Entries
// are keyed by id, so the file can redefine a startup model.
func readCustomModels(fileContent []byte, app *Application) error {
	xlog.Debug("processing custom models update")

	merged := map[string]vram.ModelSpec{}
	for _, m := range app.startupConfig.CustomModels {
		merged[strings.ToLower(m.ID)] = m
	}

	if len(fileContent) > 0 {
		fileModels, err := modelspec.ParseCustom(fileContent)
		if err != nil {
			return err
		}
		fromFile := map[string]vram.ModelSpec{}
		for _, m := range fileModels {
			fromFile[strings.ToLower(m.ID)] = m
		}
		if err := mergo.Merge(&merged, fromFile, mergo.WithOverride); err != nil {
			return err
		}
	}

	models := make([]vram.ModelSpec, 0, len(merged))
	for _, m := range merged {
		models = append(models, m)
	}
	slices.SortFunc(models, func(a, b vram.ModelSpec) int { return strings.Compare(a.ID, b.ID) })

	app.applicationConfig.CustomModels = models
	app.resolver.SetCustom(models)
	xlog.Debug("custom models loaded", "count", len(models))
	return nil
}

// readCustomAccelerators merges custom_accelerators.yaml over the accelerators given at
// startup, keyed by name.
func readCustomAccelerators(fileContent []byte, app *Application) error {
	xlog.Debug("processing custom accelerators update")

	merged := map[string]vram.AcceleratorSpec{}
	for _, a := range app.startupConfig.CustomAccelerators {
		merged[strings.ToLower(a.Name)] = a
	}

	if len(fileContent) > 0 {
		fileAccelerators, err := gpudb.ParseYAML(fileContent)
		if err != nil {
			return err
		}
		fromFile := map[string]vram.AcceleratorSpec{}
		for _, a := range fileAccelerators {
			if a.Name == "" || a.MemoryGB <= 0 {
				return fmt.Errorf("custom accelerator %q needs a name and a memory size", a.Name)
			}
			fromFile[strings.ToLower(a.Name)] = a
		}
		if err := mergo.Merge(&merged, fromFile, mergo.WithOverride); err != nil {
			return err
		}
	}

	accelerators := make([]vram.AcceleratorSpec, 0, len(merged))
	for _, a := range merged {
		accelerators = append(accelerators, a)
	}
	slices.SortFunc(accelerators, func(a, b vram.AcceleratorSpec) int { return strings.Compare(a.Name, b.Name) })

	app.applicationConfig.CustomAccelerators = accelerators
	app.catalog.SetCustom(accelerators)
	xlog.Debug("custom accelerators loaded", "count", len(accelerators))
	return nil
}

// readRuntimeSettings applies runtime_settings.json over the startup values. Removing the
// file restores them.
func readRuntimeSettings(fileContent []byte, app *Application) error {
	xlog.Debug("processing runtime settings update")

	settings := app.startupConfig.ToRuntimeSettings()
	if len(fileContent) > 0 {
		if err := json.Unmarshal(fileContent, &settings); err != nil {
			return err
		}
	}

	catalogChanged, err := app.applicationConfig.ApplyRuntimeSettings(settings)
	if err != nil {
		return err
	}
	if catalogChanged {
		xlog.Info("accelerator catalog source changed", "url", app.applicationConfig.CatalogURL())
		app.catalog.SetSource(catalogSource(app.applicationConfig))
	}
	return nil
}
