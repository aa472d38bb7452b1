package cli

import (
	"fmt"

	cliContext "github.com/canirun/canirun/core/cli/context"
	"github.com/canirun/canirun/pkg/vram"
)

type QuantsCMD struct{}

func (q *QuantsCMD) Run(ctx *cliContext.Context) error {
	var data [][]string
	for _, info := range vram.Quantizations() {
		data = append(data, []string{string(info.Level), fmt.Sprintf("%.2f", info.BitsPerWeight), info.Description})
	}
	table := newTable(ctx.Out(), "LEVEL", "BITS/WEIGHT", "DESCRIPTION")
	table.AppendBulk(data)
	table.Render()
	return nil
}
