package cli

import (
	"fmt"

	"github.com/mudler/xlog"

	cliContext "github.com/canirun/canirun/core/cli/context"
	"github.com/canirun/canirun/pkg/modelspec"
	"github.com/canirun/canirun/pkg/vram"
	gguf "github.com/gpustack/gguf-parser-go"
)

type UtilCMD struct {
	GGUFInfo GGUFInfoCMD `cmd:"" name:"gguf-info" help:"Get information about a GGUF file"`
}

type GGUFInfoCMD struct {
	Args   []string `arg:"" optional:"" name:"args" help:"GGUF file to inspect"`
	Header bool     `optional:"" default:"false" name:"header" help:"Show header information"`
}

func (u *GGUFInfoCMD) Run(ctx *cliContext.Context) error {
	if len(u.Args) == 0 {
		return fmt.Errorf("no GGUF file provided")
	}
	f, err := gguf.ParseGGUFFile(u.Args[0])
	if err != nil {
		// Only valid for gguf files
		xlog.Error("not a GGUF file", "file", u.Args[0], "error", err)
		return err
	}

	arch := f.Architecture()
	xlog.Info("GGUF file loaded", "file", u.Args[0], "modelName", f.Metadata().Name, "architecture", arch.Architecture)

	w := ctx.Out()
	shape := modelspec.ShapeOf(f, u.Args[0])
	spec := shape.Spec(u.Args[0])
	fmt.Fprintf(w, "name:          %s\n", spec.Name)
	fmt.Fprintf(w, "architecture:  %s\n", shape.Architecture)
	fmt.Fprintf(w, "parameters:    %.2fB\n", spec.Params)
	fmt.Fprintf(w, "layers:        %d\n", spec.Layers)
	fmt.Fprintf(w, "heads:         %d (%d KV)\n", spec.NumAttentionHeads, spec.NumKVHeads)
	fmt.Fprintf(w, "hidden size:   %d\n", spec.HiddenSize)
	fmt.Fprintf(w, "max context:   %d\n", spec.MaxContextLength)
	if spec.IsMoE {
		fmt.Fprintf(w, "experts:       %d (%d active, ~%.2fB active params)\n", spec.NumExperts, spec.NumActiveExperts, spec.ActiveParams)
	}
	if q, ok := modelspec.QuantizationFromFilename(u.Args[0]); ok {
		fmt.Fprintf(w, "quantization:  %s\n", q)
	}
	fmt.Fprintf(w, "file size:     %s\n", vram.FormatBytes(uint64(f.Size)))

	if u.Header {
		for _, metadata := range f.Header.MetadataKV {
			fmt.Fprintf(w, "%s: %+v\n", metadata.Key, metadata.Value)
		}
	}

	return nil
}
