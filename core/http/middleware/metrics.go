package middleware

import (
	"strings"
	"time"

	"github.com/canirun/canirun/core/services"
	"github.com/labstack/echo/v4"
)

// Metrics records the latency of API calls by method and route.
func Metrics(metricsService *services.MetricsService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if shouldSkipMetrics(c.Request().URL.Path) {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metricsService.ObserveAPICall(c.Request().Method, route, time.Since(start).Seconds())
			return err
		}
	}
}

func shouldSkipMetrics(path string) bool {
	for _, prefix := range []string{"/metrics", "/healthz", "/readyz"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
