package modelspec

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/canirun/canirun/pkg/vram"
	gguf "github.com/gpustack/gguf-parser-go"
)

// GGUFShape is the architecture read from a GGUF header.
type GGUFShape struct {
	Name                 string
	Architecture         string
	Parameters           uint64
	BlockCount           int
	EmbeddingLength      int
	AttentionHeadCount   int
	AttentionHeadCountKV int
	MaximumContextLength int
	VocabularyLength     int
	FeedForwardLength    int
	ExpertCount          int
	ExpertUsedCount      int
}

// ReadGGUF parses the header of a local file or an http(s) URL. Remote files are read
// with range requests, so only the header is downloaded.
func ReadGGUF(ctx context.Context, uri string) (GGUFShape, error) {
	var (
		f   *gguf.GGUFFile
		err error
	)
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		f, err = gguf.ParseGGUFFileRemote(ctx, uri)
	} else {
		f, err = gguf.ParseGGUFFile(strings.TrimPrefix(uri, "file://"))
	}
	if err != nil {
		return GGUFShape{}, fmt.Errorf("failed to parse GGUF %s: %w", uri, err)
	}

	return ShapeOf(f, uri), nil
}

// ShapeOf extracts the architecture from a parsed file. uri names the model when the
// header carries no name.
func ShapeOf(f *gguf.GGUFFile, uri string) GGUFShape {
	arch := f.Architecture()
	md := f.Metadata()
	shape := GGUFShape{
		Name:                 md.Name,
		Architecture:         arch.Architecture,
		Parameters:           uint64(md.Parameters),
		BlockCount:           int(arch.BlockCount),
		EmbeddingLength:      int(arch.EmbeddingLength),
		AttentionHeadCount:   int(arch.AttentionHeadCount),
		AttentionHeadCountKV: int(arch.AttentionHeadCountKV),
		MaximumContextLength: int(arch.MaximumContextLength),
		VocabularyLength:     int(arch.VocabularyLength),
		ExpertCount:          int(arch.ExpertCount),
		ExpertUsedCount:      int(arch.ExpertUsedCount),
	}
	// per layer; layers can differ, e.g. in hybrid architectures
	for _, n := range arch.FeedForwardLength {
		shape.FeedForwardLength = max(shape.FeedForwardLength, int(n))
	}
	if shape.FeedForwardLength == 0 {
		shape.FeedForwardLength = int(arch.ExpertFeedForwardLength)
	}
	if shape.Name == "" {
		shape.Name = strings.TrimSuffix(path.Base(uri), path.Ext(uri))
	}
	return shape
}

// Spec converts the header into a ModelSpec identified by id.
func (s GGUFShape) Spec(id string) vram.ModelSpec {
	spec := vram.ModelSpec{
		ID:                id,
		Name:              s.Name,
		Source:            vram.SourceGGUF,
		Params:            round2(float64(s.Parameters) / 1e9),
		Layers:            s.BlockCount,
		NumAttentionHeads: s.AttentionHeadCount,
		NumKVHeads:        s.AttentionHeadCountKV,
		HiddenSize:        s.EmbeddingLength,
		IntermediateSize:  s.FeedForwardLength,
		MaxContextLength:  s.MaximumContextLength,
	}
	if spec.NumKVHeads <= 0 {
		spec.NumKVHeads = spec.NumAttentionHeads
	}

	if s.ExpertCount > 1 {
		spec.IsMoE = true
		spec.NumExperts = s.ExpertCount
		spec.NumActiveExperts = s.ExpertUsedCount
		spec.ActiveParams = round2(s.activeParams() / 1e9)
	}
	return spec
}

// activeParams splits the parameter count into the shared part (attention and
// embeddings, computable from the header) and the experts, of which only the used
// ones run.
func (s GGUFShape) activeParams() float64 {
	total := float64(s.Parameters)
	if s.ExpertCount <= 1 || s.ExpertUsedCount <= 0 {
		return total
	}
	h := float64(s.EmbeddingLength)
	var headDim float64
	if s.AttentionHeadCount > 0 {
		headDim = h / float64(s.AttentionHeadCount)
	}
	kv := s.AttentionHeadCountKV
	if kv <= 0 {
		kv = s.AttentionHeadCount
	}
	vocab := s.VocabularyLength
	if vocab <= 0 {
		vocab = DefaultVocabSize
	}
	shared := float64(s.BlockCount)*(2*h*h+2*h*float64(kv)*headDim) + 2*float64(vocab)*h
	experts := total - shared
	if experts <= 0 {
		return total
	}
	return shared + experts*float64(s.ExpertUsedCount)/float64(s.ExpertCount)
}

// FromGGUF reads uri and returns its spec.
func FromGGUF(ctx context.Context, uri string) (vram.ModelSpec, error) {
	shape, err := ReadGGUF(ctx, uri)
	if err != nil {
		return vram.ModelSpec{}, err
	}
	spec := shape.Spec(uri)
	return spec, spec.Validate()
}

// QuantizationFromFilename finds a known quantization tag such as Q4_K_M in a file name.
func QuantizationFromFilename(name string) (vram.Quantization, bool) {
	base := strings.ToUpper(path.Base(name))
	base = strings.TrimSuffix(base, ".GGUF")
	tokens := strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '.' || r == ' '
	})
	for i := len(tokens) - 1; i >= 0; i-- {
		if q, err := vram.ParseQuantization(tokens[i]); err == nil {
			return q, true
		}
	}
	return "", false
}
