package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/canirun/canirun/core/application"
	cliContext "github.com/canirun/canirun/core/cli/context"
	"github.com/canirun/canirun/core/config"
	httpAPI "github.com/canirun/canirun/core/http"
	"github.com/canirun/canirun/internal"
	"github.com/canirun/canirun/pkg/signals"
	"github.com/mudler/xlog"
)

type ServeCMD struct {
	Address            string `env:"CANIRUN_ADDRESS,ADDRESS" default:":8080" help:"Bind address for the API server" group:"api"`
	CORS               bool   `env:"CANIRUN_CORS,CORS" help:"Enable CORS" group:"api"`
	CORSAllowOrigins   string `env:"CANIRUN_CORS_ALLOW_ORIGINS,CORS_ALLOW_ORIGINS" help:"Comma separated list of allowed origins" group:"api"`
	RequestBodyLimitKB int    `env:"CANIRUN_REQUEST_BODY_LIMIT" default:"256" help:"Maximum request body size in KB" group:"api"`
	OpaqueErrors       bool   `env:"CANIRUN_OPAQUE_ERRORS" default:"false" help:"If true, error responses carry only the status code. This is intended only for hardening against information leaks and is normally not recommended." group:"hardening"`
	DisableMetrics     bool   `env:"CANIRUN_DISABLE_METRICS_ENDPOINT,DISABLE_METRICS_ENDPOINT" default:"false" help:"Disable the /metrics endpoint" group:"api"`

	AppFlags `embed:""`

	Version bool `help:"Print the version and exit"`
}

func (r *ServeCMD) Run(ctx *cliContext.Context) error {
	if r.Version {
		fmt.Fprintln(ctx.Out(), internal.PrintableVersion())
		return nil
	}

	opts, err := r.AppFlags.options(ctx)
	if err != nil {
		return err
	}
	opts = append(opts,
		config.WithAPIAddress(r.Address),
		config.WithCors(r.CORS),
		config.WithCorsAllowOrigins(r.CORSAllowOrigins),
		config.WithRequestBodyLimitKB(r.RequestBodyLimitKB),
		config.WithOpaqueErrors(r.OpaqueErrors),
	)
	if r.DisableMetrics {
		opts = append(opts, config.DisableMetricsEndpoint)
	}

	app, err := application.New(opts...)
	if err != nil {
		return fmt.Errorf("failed basic startup tasks with error %s", err.Error())
	}

	appHTTP, err := httpAPI.API(app)
	if err != nil {
		xlog.Error("error during HTTP App construction", "error", err)
		return err
	}

	signals.RegisterGracefulTerminationHandler(func() {
		if err := app.Stop(); err != nil {
			xlog.Error("error while stopping the application", "error", err)
		}
	})
	signals.RegisterGracefulTerminationHandler(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := appHTTP.Shutdown(shutdownCtx); err != nil {
			xlog.Error("error while shutting down the HTTP server", "error", err)
		}
	})

	runCtx, stop := signals.NotifyContext(app.ApplicationConfig().Context)
	defer stop()

	xlog.Info("canirun is started and running", "address", r.Address)

	errCh := make(chan error, 1)
	go func() {
		errCh <- appHTTP.Start(r.Address)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-runCtx.Done():
		// wait for the termination handlers to close the server
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
