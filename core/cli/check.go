package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	cliContext "github.com/canirun/canirun/core/cli/context"
	"github.com/canirun/canirun/core/schema"
	"github.com/canirun/canirun/pkg/vram"
)

type CheckCMD struct {
	Model string `arg:"" name:"model" help:"Model id (e.g. meta-llama/Llama-3.1-8B-Instruct), HuggingFace repo or .gguf file"`

	Quant   string `short:"q" help:"Quantization level, the configured default when empty"`
	Context int    `short:"c" name:"context" help:"Context length in tokens"`
	JSON    bool   `name:"json" help:"Print the result as JSON"`

	HardwareFlags `embed:""`
	AppFlags      `embed:""`
}

func (c *CheckCMD) Run(ctx *cliContext.Context) error {
	app, err := newApp(ctx, &c.AppFlags)
	if err != nil {
		return err
	}
	defer app.Stop()

	runCtx, stop := commandContext()
	defer stop()

	resp, err := app.CompatibilityService().Check(runCtx, schema.CompatibilityRequest{
		Model:         c.Model,
		Hardware:      c.HardwareFlags.request(),
		Quantization:  c.Quant,
		ContextLength: c.Context,
	})
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(ctx.Out())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printCheck(ctx.Out(), resp)
	return nil
}

func hardwareLabel(hw vram.HardwareSpec) string {
	switch {
	case hw.Accelerator == nil:
		return fmt.Sprintf("CPU only, %s RAM", vram.FormatGB(hw.SystemMemoryGB))
	case hw.IsUnifiedMemory:
		label := hw.UnifiedMemoryModelLabel
		if label == "" {
			label = hw.Accelerator.Name
		}
		return fmt.Sprintf("%s, %s unified memory", label, vram.FormatGB(hw.SystemMemoryGB))
	case hw.AcceleratorCount > 1:
		return fmt.Sprintf("%dx %s (%s total), %s RAM", hw.AcceleratorCount, hw.Accelerator.Name,
			vram.FormatGB(vram.AvailableAcceleratorMemoryGB(hw)), vram.FormatGB(hw.SystemMemoryGB))
	}
	return fmt.Sprintf("%s (%s), %s RAM", hw.Accelerator.Name,
		vram.FormatGB(vram.AvailableAcceleratorMemoryGB(hw)), vram.FormatGB(hw.SystemMemoryGB))
}

func printCheck(w io.Writer, resp *schema.CompatibilityResponse) {
	r := resp.Result
	fmt.Fprintf(w, "Model:        %s (%.1fB params)\n", resp.Model.Name, resp.Model.Params)
	fmt.Fprintf(w, "Hardware:     %s\n", hardwareLabel(resp.Hardware))
	fmt.Fprintf(w, "Quantization: %s, context %d tokens\n", r.Quantization, r.ContextLength)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", r.Verdict.Emoji(), r.Verdict.Label())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  weights    %s\n", vram.FormatGB(r.Memory.ModelGB))
	fmt.Fprintf(w, "  KV cache   %s\n", vram.FormatGB(r.Memory.KVCacheGB))
	fmt.Fprintf(w, "  overhead   %s\n", vram.FormatGB(r.Memory.OverheadGB))
	fmt.Fprintf(w, "  total      %s of %s available\n", vram.FormatGB(r.Memory.TotalRequiredGB), vram.FormatGB(r.AvailableAcceleratorGB))
	if r.Layers.OnHost > 0 {
		fmt.Fprintf(w, "  layers     %d/%d on the accelerator, %d%% offloaded\n", r.Layers.OnAccelerator, r.Layers.Total, r.Layers.OffloadPercent)
	}
	if r.Verdict != vram.VerdictCannotRun {
		fmt.Fprintf(w, "  speed      ~%.1f tokens/s (%s)\n", r.Throughput.TokensPerSecond, r.Throughput.Category)
	}

	for _, warning := range resp.Warnings {
		fmt.Fprintf(w, "\nwarning: %s\n", warning)
	}
	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "  [%s] %s: %s\n", strings.ToUpper(string(rec.Impact)), rec.Title, rec.Description)
		}
	}
}
