package cli

import (
	cliContext "github.com/canirun/canirun/core/cli/context"
)

var CLI struct {
	cliContext.Context `embed:""`

	Check   CheckCMD   `cmd:"" help:"Check whether a model runs on a GPU or unified memory machine" default:"withargs"`
	Compare CompareCMD `cmd:"" help:"Compare several models on the same hardware"`
	GPUs    GPUsCMD    `cmd:"" name:"gpus" help:"List the accelerator catalog"`
	Quants  QuantsCMD  `cmd:"" help:"List quantization levels"`
	Models  ModelsCMD  `cmd:"" help:"Search and inspect model architectures"`
	Detect  DetectCMD  `cmd:"" help:"Detect the hardware of this machine"`
	Serve   ServeCMD   `cmd:"" help:"Run the canirun HTTP API"`
	Util    UtilCMD    `cmd:"" help:"Utility commands"`
}
