package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	cliContext "github.com/canirun/canirun/core/cli/context"
	"github.com/canirun/canirun/pkg/vram"
	"github.com/canirun/canirun/pkg/xsysinfo"
)

type DetectCMD struct {
	JSON bool `name:"json" help:"Print the detection as JSON"`

	AppFlags `embed:""`
}

func (d *DetectCMD) Run(ctx *cliContext.Context) error {
	app, err := newApp(ctx, &d.AppFlags)
	if err != nil {
		return err
	}
	defer app.Stop()

	runCtx, stop := commandContext()
	defer stop()

	detection, err := app.CompatibilityService().Detect(runCtx)
	if err != nil {
		return err
	}
	if d.JSON {
		enc := json.NewEncoder(ctx.Out())
		enc.SetIndent("", "  ")
		return enc.Encode(detection)
	}
	printDetection(ctx, detection)
	return nil
}

func printDetection(ctx *cliContext.Context, d *xsysinfo.Detection) {
	w := ctx.Out()
	fmt.Fprintf(w, "Hardware: %s\n", hardwareLabel(d.Hardware))
	if d.Hardware.Accelerator != nil && !d.InCatalog {
		fmt.Fprintln(w, "          (not in the accelerator catalog, bandwidth unknown)")
	}
	fmt.Fprintf(w, "CPU:      %s, %d cores / %d threads\n", d.CPU.Brand, d.CPU.PhysicalCores, d.CPU.LogicalCores)
	if len(d.CPU.Features) > 0 {
		fmt.Fprintf(w, "          %s\n", strings.Join(d.CPU.Features, " "))
	}
	for _, g := range d.GPUs {
		memory := vram.FormatBytes(g.TotalVRAM)
		if g.Unified {
			memory = "shared with system RAM"
		}
		fmt.Fprintf(w, "GPU %d:    %s, %s\n", g.Index, g.Name, memory)
	}
}
