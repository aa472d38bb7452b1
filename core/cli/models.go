package cli

import (
	"encoding/json"
	"fmt"

	cliContext "github.com/canirun/canirun/core/cli/context"
)

type ModelsSearch struct {
	Term  string `arg:"" optional:"" name:"term" help:"Search term, lists the built-in models when empty"`
	Limit int    `short:"n" default:"20" help:"Maximum number of results"`

	AppFlags `embed:""`
}

type ModelsShow struct {
	ID string `arg:"" name:"id" help:"Model id, HuggingFace repo or .gguf file"`

	AppFlags `embed:""`
}

type ModelsCMD struct {
	Search ModelsSearch `cmd:"" help:"Search built-in, custom and HuggingFace models" default:"withargs"`
	Show   ModelsShow   `cmd:"" help:"Show the architecture of a model"`
}

func (ms *ModelsSearch) Run(ctx *cliContext.Context) error {
	app, err := newApp(ctx, &ms.AppFlags)
	if err != nil {
		return err
	}
	defer app.Stop()

	runCtx, stop := commandContext()
	defer stop()

	results := app.CompatibilityService().SearchModels(runCtx, ms.Term, ms.Limit)
	if len(results) == 0 {
		fmt.Fprintln(ctx.Out(), "no model matches")
		return nil
	}

	var data [][]string
	for _, r := range results {
		params := ""
		if r.Params > 0 {
			params = fmt.Sprintf("%.1fB", r.Params)
		}
		downloads := ""
		if r.Downloads > 0 {
			downloads = fmt.Sprintf("%d", r.Downloads)
		}
		data = append(data, []string{r.ID, params, string(r.Source), downloads})
	}
	table := newTable(ctx.Out(), "ID", "PARAMS", "SOURCE", "DOWNLOADS")
	table.AppendBulk(data)
	table.Render()
	return nil
}

func (ms *ModelsShow) Run(ctx *cliContext.Context) error {
	app, err := newApp(ctx, &ms.AppFlags)
	if err != nil {
		return err
	}
	defer app.Stop()

	runCtx, stop := commandContext()
	defer stop()

	spec, err := app.CompatibilityService().ResolveModel(runCtx, ms.ID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(ctx.Out())
	enc.SetIndent("", "  ")
	return enc.Encode(spec)
}
