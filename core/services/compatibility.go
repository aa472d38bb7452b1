package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/canirun/canirun/core/config"
	"github.com/canirun/canirun/core/schema"
	"github.com/canirun/canirun/pkg/modelspec"
	"github.com/canirun/canirun/pkg/vram"
	"github.com/canirun/canirun/pkg/xsysinfo"
	"github.com/mudler/xlog"
)

// ErrInvalidRequest marks input the caller has to fix.
var ErrInvalidRequest = errors.New("invalid request")

// AcceleratorCatalog is the part of gpudb.Catalog the service uses.
type AcceleratorCatalog interface {
	Accelerators(ctx context.Context) []vram.AcceleratorSpec
	Find(ctx context.Context, name string) (vram.AcceleratorSpec, error)
	Search(ctx context.Context, term string, vendor vram.Vendor) []vram.AcceleratorSpec
}

// ModelResolver is the part of modelspec.Resolver the service uses.
type ModelResolver interface {
	Resolve(ctx context.Context, id string) (vram.ModelSpec, error)
	Search(ctx context.Context, term string, limit int) []modelspec.SearchResult
}

// HardwareDetector inspects the machine the service runs on.
type HardwareDetector func(ctx context.Context, lookup xsysinfo.AcceleratorLookup) (*xsysinfo.Detection, error)

// CompatibilityService turns requests naming models and hardware into calls of the
// compatibility engine.
type CompatibilityService struct {
	appConfig *config.ApplicationConfig
	catalog   AcceleratorCatalog
	resolver  ModelResolver
	detect    HardwareDetector
	metrics   *MetricsService
}

// NewCompatibilityService wires the collaborators. metrics may be nil.
func NewCompatibilityService(appConfig *config.ApplicationConfig, catalog AcceleratorCatalog, resolver ModelResolver, detect HardwareDetector, metrics *MetricsService) *CompatibilityService {
	if detect == nil {
		detect = xsysinfo.DetectHardware
	}
	return &CompatibilityService{
		appConfig: appConfig,
		catalog:   catalog,
		resolver:  resolver,
		detect:    detect,
		metrics:   metrics,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Quantization parses s, falling back to the configured default when s is empty.
func (s *CompatibilityService) Quantization(q string) (vram.Quantization, error) {
	if strings.TrimSpace(q) == "" {
		def, _ := s.appConfig.Defaults()
		return def, nil
	}
	return vram.ParseQuantization(q)
}

// Hardware builds a HardwareSpec from a request.
func (s *CompatibilityService) Hardware(ctx context.Context, req schema.HardwareRequest) (vram.HardwareSpec, error) {
	switch {
	case req.SystemMemoryGB < 0:
		return vram.HardwareSpec{}, invalid("system memory must not be negative")
	case req.AcceleratorCount < 0:
		return vram.HardwareSpec{}, invalid("accelerator count must not be negative")
	case req.MemoryOverrideGB != nil && *req.MemoryOverrideGB < 0:
		return vram.HardwareSpec{}, invalid("memory override must not be negative")
	}

	var hw vram.HardwareSpec
	switch {
	case req.Detect:
		d, err := s.Detect(ctx)
		if err != nil {
			return vram.HardwareSpec{}, err
		}
		hw = d.Hardware
		if req.AcceleratorCount > 0 && hw.Accelerator != nil && !hw.IsUnifiedMemory {
			hw.AcceleratorCount = req.AcceleratorCount
		}
	case req.Accelerator != "":
		acc, err := s.catalog.Find(ctx, req.Accelerator)
		if err != nil {
			return vram.HardwareSpec{}, err
		}
		hw.Accelerator = &acc
		hw.AcceleratorCount = max(req.AcceleratorCount, 1)
		hw.IsUnifiedMemory = req.UnifiedMemory || acc.UnifiedMemory
		if hw.IsUnifiedMemory {
			hw.UnifiedMemoryModelLabel = acc.Name
			hw.AcceleratorCount = 1
			// the pool is the chip's memory unless the caller says otherwise
			hw.SystemMemoryGB = acc.MemoryGB
		}
	case req.UnifiedMemory:
		if req.SystemMemoryGB == 0 {
			return vram.HardwareSpec{}, invalid("unified memory needs the system memory size")
		}
		hw.Accelerator = &vram.AcceleratorSpec{Name: "Unified memory", MemoryGB: req.SystemMemoryGB, UnifiedMemory: true}
		hw.AcceleratorCount = 1
		hw.IsUnifiedMemory = true
		hw.UnifiedMemoryModelLabel = "Unified memory"
	}

	if req.SystemMemoryGB > 0 {
		hw.SystemMemoryGB = req.SystemMemoryGB
	}
	if req.MemoryOverrideGB != nil {
		v := *req.MemoryOverrideGB
		hw.CustomMemoryOverrideGB = &v
	}
	return hw, nil
}

// Model resolves the model of a request: an inline spec wins over an id. Overrides are
// merged over the result.
func (s *CompatibilityService) Model(ctx context.Context, req schema.CompatibilityRequest) (vram.ModelSpec, error) {
	var (
		spec vram.ModelSpec
		err  error
	)
	switch {
	case req.ModelSpec != nil:
		spec = *req.ModelSpec
		if spec.Source == "" {
			spec.Source = vram.SourceCustom
		}
		if spec.ID == "" {
			spec.ID = spec.Name
		}
		if spec.NumKVHeads == 0 {
			spec.NumKVHeads = spec.NumAttentionHeads
		}
		if err = spec.Validate(); err != nil {
			return vram.ModelSpec{}, err
		}
	case strings.TrimSpace(req.Model) != "":
		spec, err = s.ResolveModel(ctx, req.Model)
		if err != nil {
			return vram.ModelSpec{}, err
		}
	default:
		return vram.ModelSpec{}, invalid("a model id or an inline model spec is required")
	}

	if req.Overrides != nil {
		return modelspec.ApplyOverrides(spec, *req.Overrides)
	}
	return spec, nil
}

// ResolveModel looks a model up by id.
func (s *CompatibilityService) ResolveModel(ctx context.Context, id string) (vram.ModelSpec, error) {
	spec, err := s.resolver.Resolve(ctx, strings.TrimSpace(id))
	if s.metrics != nil {
		s.metrics.ObserveResolution(ctx, spec.Source, err == nil)
	}
	return spec, err
}

// Check runs the full compatibility computation.
func (s *CompatibilityService) Check(ctx context.Context, req schema.CompatibilityRequest) (*schema.CompatibilityResponse, error) {
	q, err := s.Quantization(req.Quantization)
	if err != nil {
		return nil, err
	}
	if req.ContextLength < 0 {
		return nil, invalid("context length must not be negative")
	}
	model, err := s.Model(ctx, req)
	if err != nil {
		return nil, err
	}
	hw, err := s.Hardware(ctx, req.Hardware)
	if err != nil {
		return nil, err
	}

	contextLength := req.ContextLength
	if contextLength == 0 {
		_, contextLength = s.appConfig.Defaults()
	}
	if contextLength == 0 {
		contextLength = vram.ReferenceContextLength(model)
	}

	result, err := vram.CalculateCompatibility(model, hw, q, contextLength)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveCheck(ctx, result.Verdict, q)
	}
	xlog.Debug("compatibility computed", "model", model.ID, "verdict", result.Verdict, "total_gb", result.Memory.TotalRequiredGB)

	return &schema.CompatibilityResponse{
		Model:    model,
		Hardware: hw,
		Result:   result,
		Warnings: warnings(model, contextLength),
	}, nil
}

func warnings(m vram.ModelSpec, contextLength int) []string {
	var w []string
	if !m.HasExactHeadDim() {
		w = append(w, fmt.Sprintf("hidden size %d is not a multiple of %d attention heads, the KV cache figure is approximate", m.HiddenSize, m.NumAttentionHeads))
	}
	if m.MaxContextLength > 0 && contextLength > m.MaxContextLength {
		w = append(w, fmt.Sprintf("context length %d exceeds the model maximum of %d", contextLength, m.MaxContextLength))
	}
	return w
}

// Compare quick-checks every model against the same hardware, one after the other.
// Models that cannot be resolved get a row carrying the error. progress, when set, is
// called after each row.
func (s *CompatibilityService) Compare(ctx context.Context, req schema.CompareRequest, progress func()) (*schema.CompareResponse, error) {
	if len(req.Models) == 0 {
		return nil, invalid("at least one model is required")
	}
	q, err := s.Quantization(req.Quantization)
	if err != nil {
		return nil, err
	}
	hw, err := s.Hardware(ctx, req.Hardware)
	if err != nil {
		return nil, err
	}

	resp := &schema.CompareResponse{Quantization: q, Hardware: hw, Rows: make([]schema.CompareRow, 0, len(req.Models))}
	for _, id := range req.Models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp.Rows = append(resp.Rows, s.compareRow(ctx, id, hw, q))
		if progress != nil {
			progress()
		}
	}
	return resp, nil
}

func (s *CompatibilityService) compareRow(ctx context.Context, id string, hw vram.HardwareSpec, q vram.Quantization) schema.CompareRow {
	row := schema.CompareRow{Model: id}
	model, err := s.ResolveModel(ctx, id)
	if err != nil {
		xlog.Warn("skipping model in comparison", "model", id, "error", err)
		row.Error = err.Error()
		return row
	}
	row.Name = model.Name
	row.Params = model.Params
	row.ContextLength = vram.ReferenceContextLength(model)

	res, err := vram.QuickCheck(model, hw, q)
	if err != nil {
		row.Error = err.Error()
		return row
	}
	if s.metrics != nil {
		s.metrics.ObserveCheck(ctx, res.Verdict, q)
	}
	row.Verdict = res.Verdict
	row.VRAMNeededGB = res.VRAMNeededGB
	return row
}

func (s *CompatibilityService) Accelerators(ctx context.Context, term string, vendor vram.Vendor) []vram.AcceleratorSpec {
	if term == "" && vendor == "" {
		return s.catalog.Accelerators(ctx)
	}
	return s.catalog.Search(ctx, term, vendor)
}

func (s *CompatibilityService) SearchModels(ctx context.Context, term string, limit int) []modelspec.SearchResult {
	if limit <= 0 {
		limit = modelspec.DefaultSearchLimit
	}
	return s.resolver.Search(ctx, term, limit)
}

// Detect inspects the local machine, matching its accelerators against the catalog.
func (s *CompatibilityService) Detect(ctx context.Context) (*xsysinfo.Detection, error) {
	return s.detect(ctx, s.catalog)
}
