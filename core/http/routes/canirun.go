package routes

import (
	"github.com/canirun/canirun/core/config"
	"github.com/canirun/canirun/core/http/endpoints/canirun"
	"github.com/canirun/canirun/core/services"
	"github.com/labstack/echo/v4"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterCanirunRoutes(e *echo.Echo,
	appConfig *config.ApplicationConfig,
	svc *services.CompatibilityService,
	gatherer prom.Gatherer) {

	e.GET("/version", canirun.VersionEndpoint())

	if !appConfig.DisableMetrics && gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	api.GET("/quantizations", canirun.ListQuantizationsEndpoint())
	api.GET("/accelerators", canirun.ListAcceleratorsEndpoint(svc))
	api.GET("/models", canirun.SearchModelsEndpoint(svc))
	api.GET("/models/resolve", canirun.ResolveModelEndpoint(svc))
	api.GET("/hardware", canirun.HardwareEndpoint(svc))
	api.POST("/compatibility", canirun.CompatibilityEndpoint(svc))
	api.POST("/compare", canirun.CompareEndpoint(svc))
}
