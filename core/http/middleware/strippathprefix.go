package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// StripPathPrefix removes the prefix a reverse proxy announces in X-Forwarded-Prefix, so
// the API can be mounted under a sub-path. A request for the bare prefix is redirected to
// the prefix with a trailing slash.
// This must be registered as Pre middleware (using e.Pre()) to modify the path before routing.
func StripPathPrefix() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			for _, prefix := range req.Header.Values("X-Forwarded-Prefix") {
				if prefix == "" {
					continue
				}
				base := strings.TrimSuffix(prefix, "/")
				if req.URL.Path == base {
					return c.Redirect(http.StatusFound, base+"/")
				}
				rest, ok := strings.CutPrefix(req.URL.Path, base+"/")
				if !ok {
					continue
				}
				req.URL.Path = "/" + rest
				req.URL.RawPath = ""
				req.RequestURI = req.URL.RequestURI()
				break
			}
			return next(c)
		}
	}
}
