package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/canirun/canirun/core/cli"
	"github.com/canirun/canirun/internal"
	"github.com/joho/godotenv"
	"github.com/mudler/xlog"
)

func main() {
	var err error

	// Initialize xlog at a level of INFO, we will set the desired level after we parse the CLI options
	xlog.SetLogger(xlog.NewLogger(xlog.LogLevel("info"), "text"))

	// handle loading environment variables from .env files
	envFiles := []string{".env", "canirun.env"}
	homeDir, err := os.UserHomeDir()
	if err == nil {
		envFiles = append(envFiles, filepath.Join(homeDir, "canirun.env"), filepath.Join(homeDir, ".config/canirun.env"))
	}
	envFiles = append(envFiles, "/etc/canirun.env")

	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			xlog.Debug("env file found, loading environment variables from file", "envFile", envFile)
			err = godotenv.Load(envFile)
			if err != nil {
				xlog.Error("failed to load environment variables from file", "error", err, "envFile", envFile)
				continue
			}
		}
	}

	cachePath := ""
	if dir, err := os.UserCacheDir(); err == nil {
		cachePath = filepath.Join(dir, "canirun")
	}
	configPath := ""
	if dir, err := os.UserConfigDir(); err == nil {
		configPath = filepath.Join(dir, "canirun")
	}

	// Actually parse the CLI options
	ctx := kong.Parse(&cli.CLI,
		kong.Description(
			`  canirun estimates whether a language model fits on your GPU, and how fast it will run.

Check a model against your own machine with canirun check <model>, or name a card with --gpu.

Version: ${version}
`,
		),
		kong.UsageOnError(),
		kong.Vars{
			"cachepath":  cachePath,
			"configpath": configPath,
			"version":    internal.PrintableVersion(),
		},
	)

	// Configure the logging level before we run the application
	// This is here to preserve the existing --debug flag functionality
	// One-shot commands print their results, only the server logs at info by default
	logLevel := "warn"
	if strings.HasPrefix(ctx.Command(), "serve") {
		logLevel = "info"
	}
	if cli.CLI.Debug && cli.CLI.LogLevel == nil {
		logLevel = "debug"
		cli.CLI.LogLevel = &logLevel
	}

	if cli.CLI.LogLevel == nil {
		cli.CLI.LogLevel = &logLevel
	}

	xlog.SetLogger(xlog.NewLogger(xlog.LogLevel(*cli.CLI.LogLevel), *cli.CLI.LogFormat))

	// Run the thing!
	err = ctx.Run(&cli.CLI.Context)
	if err != nil {
		xlog.Fatal("Error running the application", "error", err)
	}
}
