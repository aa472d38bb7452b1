package canirun

import (
	"context"
	"errors"
	"net/http"

	"github.com/canirun/canirun/core/services"
	"github.com/canirun/canirun/pkg/gpudb"
	"github.com/canirun/canirun/pkg/modelspec"
	"github.com/canirun/canirun/pkg/vram"
	"github.com/labstack/echo/v4"
)

// toHTTPError maps domain errors onto status codes. Anything unknown stays a 500.
func toHTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrInvalidRequest),
		errors.Is(err, vram.ErrUnknownQuantization),
		errors.Is(err, vram.ErrInvalidModel),
		errors.Is(err, vram.ErrInvalidContextLength),
		errors.Is(err, modelspec.ErrIncompleteConfig):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, modelspec.ErrModelNotFound),
		errors.Is(err, gpudb.ErrAcceleratorNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, modelspec.ErrGatedModel):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return err
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed parsing request body: "+err.Error())
	}
	return nil
}
