package canirun

import (
	"net/http"

	"github.com/canirun/canirun/core/schema"
	"github.com/canirun/canirun/core/services"
	"github.com/labstack/echo/v4"
)

// CompatibilityEndpoint computes the memory breakdown and verdict for one model on one
// hardware setup
// @Summary Check whether a model runs on the given hardware
// @Param request body schema.CompatibilityRequest true "query params"
// @Success 200 {object} schema.CompatibilityResponse "Response"
// @Router /api/compatibility [post]
func CompatibilityEndpoint(svc *services.CompatibilityService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req schema.CompatibilityRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		resp, err := svc.Check(c.Request().Context(), req)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// CompareEndpoint quick-checks several models against the same hardware
// @Summary Compare models on the given hardware
// @Param request body schema.CompareRequest true "query params"
// @Success 200 {object} schema.CompareResponse "Response"
// @Router /api/compare [post]
func CompareEndpoint(svc *services.CompatibilityService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req schema.CompareRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		resp, err := svc.Compare(c.Request().Context(), req, nil)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, resp)
	}
}
