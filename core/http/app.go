package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mudler/xlog"
	prom "github.com/prometheus/client_golang/prometheus"

	httpMiddleware "github.com/canirun/canirun/core/http/middleware"
	"github.com/canirun/canirun/core/http/routes"

	"github.com/canirun/canirun/core/application"
	"github.com/canirun/canirun/core/schema"
)

// @title canirun API
// @version 1.0.0
// @description Estimates whether a language model fits on a given GPU or unified memory machine.
// @license.name MIT
// @BasePath /

func API(application *application.Application) (*echo.Echo, error) {
	appConfig := application.ApplicationConfig()
	e := echo.New()

	// Set body limit
	if appConfig.RequestBodyLimitKB > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", appConfig.RequestBodyLimitKB)))
	}

	// Set error handler
	if !appConfig.OpaqueErrors {
		e.HTTPErrorHandler = func(err error, c echo.Context) {
			if c.Response().Committed {
				return
			}
			code := http.StatusInternalServerError
			message := err.Error()
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
				message = fmt.Sprint(he.Message)
			}
			if code == http.StatusInternalServerError {
				xlog.Error("request failed", "path", c.Request().URL.Path, "error", err)
			}
			if err := c.JSON(code, schema.ErrorResponse{
				Error: &schema.APIError{Message: message, Code: code},
			}); err != nil {
				xlog.Debug("unable to send error response", "error", err)
			}
		}
	} else {
		e.HTTPErrorHandler = func(err error, c echo.Context) {
			if c.Response().Committed {
				return
			}
			code := http.StatusInternalServerError
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
			}
			c.NoContent(code)
		}
	}

	// Hide banner
	e.HideBanner = true
	e.HidePort = true

	// StripPathPrefix must run before routing
	e.Pre(httpMiddleware.StripPathPrefix())
	e.Use(httpMiddleware.RequestID())

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()
			if err := next(c); err != nil {
				// render now so the status below is the one sent
				c.Error(err)
			}
			xlog.Info("HTTP request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", httpMiddleware.RequestIDFromContext(req.Context()))
			return nil
		}
	})

	// Recover middleware
	if !appConfig.Debug {
		e.Use(middleware.Recover())
	}

	var gatherer prom.Gatherer
	if metricsService := application.MetricsService(); metricsService != nil {
		e.Use(httpMiddleware.Metrics(metricsService))
		gatherer = application.Registry()
	}

	// CORS middleware
	if appConfig.CORS {
		corsConfig := middleware.CORSConfig{}
		if appConfig.CORSAllowOrigins != "" {
			corsConfig.AllowOrigins = strings.Split(appConfig.CORSAllowOrigins, ",")
		}
		e.Use(middleware.CORSWithConfig(corsConfig))
	}

	routes.HealthRoutes(e)
	routes.RegisterCanirunRoutes(e, appConfig, application.CompatibilityService(), gatherer)

	e.Server.RegisterOnShutdown(func() {
		xlog.Info("canirun API server shutting down")
	})

	return e, nil
}
