package canirun

import (
	"net/http"

	"github.com/canirun/canirun/core/schema"
	"github.com/canirun/canirun/core/services"
	"github.com/canirun/canirun/internal"
	"github.com/labstack/echo/v4"
)

// HardwareEndpoint reports the hardware of the machine the server runs on
// @Summary Detect the server hardware
// @Success 200 {object} xsysinfo.Detection "Response"
// @Router /api/hardware [get]
func HardwareEndpoint(svc *services.CompatibilityService) echo.HandlerFunc {
	return func(c echo.Context) error {
		d, err := svc.Detect(c.Request().Context())
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, d)
	}
}

// VersionEndpoint
// @Summary Show the canirun version
// @Success 200 {object} schema.VersionResponse "Response"
// @Router /version [get]
func VersionEndpoint() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, schema.VersionResponse{Version: internal.PrintableVersion()})
	}
}
