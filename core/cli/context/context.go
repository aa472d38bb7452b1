package cliContext

import (
	"io"
	"os"
)

type Context struct {
	Debug     bool    `env:"CANIRUN_DEBUG,DEBUG" default:"false" hidden:"" help:"DEPRECATED, use --log-level=debug instead. Enable debug logging"`
	LogLevel  *string `env:"CANIRUN_LOG_LEVEL" enum:"error,warn,info,debug,trace" help:"Set the level of logs to output [${enum}]"`
	LogFormat *string `env:"CANIRUN_LOG_FORMAT" default:"default" enum:"default,text,json" help:"Set the format of logs to output [${enum}]"`

	// Stdout receives command output, os.Stdout when nil.
	Stdout io.Writer `kong:"-"`
}

func (c *Context) Out() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

// IsDebug reports whether debug logging was asked for.
func (c *Context) IsDebug() bool {
	return c.Debug || (c.LogLevel != nil && (*c.LogLevel == "debug" || *c.LogLevel == "trace"))
}
