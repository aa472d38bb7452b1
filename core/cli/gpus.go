package cli

import (
	"fmt"
	"strings"

	cliContext "github.com/canirun/canirun/core/cli/context"
	"github.com/canirun/canirun/pkg/vram"
)

type GPUsCMD struct {
	Term   string `arg:"" optional:"" name:"term" help:"Fuzzy filter on the accelerator name"`
	Vendor string `help:"Only list one vendor: nvidia, amd, intel or apple"`

	AppFlags `embed:""`
}

func (g *GPUsCMD) Run(ctx *cliContext.Context) error {
	app, err := newApp(ctx, &g.AppFlags)
	if err != nil {
		return err
	}
	defer app.Stop()

	runCtx, stop := commandContext()
	defer stop()

	accelerators := app.CompatibilityService().Accelerators(runCtx, g.Term, vram.Vendor(strings.ToLower(g.Vendor)))
	if len(accelerators) == 0 {
		fmt.Fprintln(ctx.Out(), "no accelerator matches")
		return nil
	}

	var data [][]string
	for _, a := range accelerators {
		memory := vram.FormatGB(a.MemoryGB)
		if a.UnifiedMemory {
			memory += " unified"
		}
		data = append(data, []string{a.Name, strings.ToUpper(string(a.Vendor)), memory, fmt.Sprintf("%.0f GB/s", a.MemoryBandwidthGBs), a.Architecture})
	}
	table := newTable(ctx.Out(), "NAME", "VENDOR", "MEMORY", "BANDWIDTH", "ARCHITECTURE")
	table.AppendBulk(data)
	table.Render()
	return nil
}
