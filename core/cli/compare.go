package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	cliContext "github.com/canirun/canirun/core/cli/context"
	"github.com/canirun/canirun/core/schema"
	"github.com/canirun/canirun/pkg/vram"
	"github.com/mudler/xlog"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
)

type CompareCMD struct {
	Models []string `arg:"" name:"models" help:"Model ids to compare"`

	Quant string `short:"q" help:"Quantization level, the configured default when empty"`
	JSON  bool   `name:"json" help:"Print the result as JSON"`

	HardwareFlags `embed:""`
	AppFlags      `embed:""`
}

func (c *CompareCMD) Run(ctx *cliContext.Context) error {
	app, err := newApp(ctx, &c.AppFlags)
	if err != nil {
		return err
	}
	defer app.Stop()

	progressBar := progressbar.NewOptions(
		len(c.Models),
		progressbar.OptionSetDescription("resolving models"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(false),
		progressbar.OptionClearOnFinish(),
		// only when a person is watching stdout
		progressbar.OptionSetVisibility(ctx.Stdout == nil && !c.JSON),
	)
	progress := func() {
		if err := progressBar.Add(1); err != nil {
			xlog.Debug("error while updating progress bar", "error", err)
		}
	}

	runCtx, stop := commandContext()
	defer stop()

	resp, err := app.CompatibilityService().Compare(runCtx, schema.CompareRequest{
		Models:       c.Models,
		Hardware:     c.HardwareFlags.request(),
		Quantization: c.Quant,
	}, progress)
	if err != nil {
		return err
	}
	_ = progressBar.Finish()

	if c.JSON {
		enc := json.NewEncoder(ctx.Out())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printCompare(ctx.Out(), resp)
	return nil
}

func printCompare(w io.Writer, resp *schema.CompareResponse) {
	fmt.Fprintf(w, "%s at %s\n\n", hardwareLabel(resp.Hardware), resp.Quantization)

	var data [][]string
	for _, row := range resp.Rows {
		if row.Error != "" {
			data = append(data, []string{row.Model, "", "", "", "error: " + row.Error})
			continue
		}
		data = append(data, []string{
			row.Name,
			fmt.Sprintf("%.1fB", row.Params),
			fmt.Sprintf("%d", row.ContextLength),
			vram.FormatGB(row.VRAMNeededGB),
			row.Verdict.Emoji() + " " + row.Verdict.Label(),
		})
	}

	table := newTable(w, "MODEL", "PARAMS", "CONTEXT", "NEEDS", "VERDICT")
	table.AppendBulk(data)
	table.Render()
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	return table
}
