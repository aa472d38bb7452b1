package canirun

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/canirun/canirun/core/services"
	"github.com/canirun/canirun/pkg/vram"
	"github.com/labstack/echo/v4"
)

// ListAcceleratorsEndpoint lists the accelerator catalog
// @Summary List known accelerators, optionally filtered
// @Param search query string false "fuzzy name filter"
// @Param vendor query string false "nvidia, amd, intel or apple"
// @Success 200 {object} []vram.AcceleratorSpec "Response"
// @Router /api/accelerators [get]
func ListAcceleratorsEndpoint(svc *services.CompatibilityService) echo.HandlerFunc {
	return func(c echo.Context) error {
		vendor := vram.Vendor(strings.ToLower(c.QueryParam("vendor")))
		return c.JSON(http.StatusOK, svc.Accelerators(c.Request().Context(), c.QueryParam("search"), vendor))
	}
}

// SearchModelsEndpoint searches seed, custom and hub models
// @Summary Search models
// @Param search query string false "search term"
// @Param limit query int false "maximum number of results"
// @Success 200 {object} []modelspec.SearchResult "Response"
// @Router /api/models [get]
func SearchModelsEndpoint(svc *services.CompatibilityService) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 0
		if l := c.QueryParam("limit"); l != "" {
			var err error
			if limit, err = strconv.Atoi(l); err != nil || limit < 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
			}
		}
		return c.JSON(http.StatusOK, svc.SearchModels(c.Request().Context(), c.QueryParam("search"), limit))
	}
}

// ResolveModelEndpoint returns the architecture of a model
// @Summary Resolve a model id to its architecture
// @Param id query string true "seed/custom id or hub repo"
// @Success 200 {object} vram.ModelSpec "Response"
// @Router /api/models/resolve [get]
func ResolveModelEndpoint(svc *services.CompatibilityService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.QueryParam("id")
		if strings.TrimSpace(id) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "id is required")
		}
		spec, err := svc.ResolveModel(c.Request().Context(), id)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, spec)
	}
}

// ListQuantizationsEndpoint
// @Summary List quantization levels from largest to smallest footprint
// @Success 200 {object} []vram.QuantizationInfo "Response"
// @Router /api/quantizations [get]
func ListQuantizationsEndpoint() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, vram.Quantizations())
	}
}
