// Package middleware provides Echo middleware for logging, metrics and
// security headers.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"music-edge/internal/model"
)

// RequestLogger returns an Echo middleware that logs each request with slog.
// The raw query is never logged: audio targets can carry signed tokens.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	logger = logger.With("component", "http")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
				"bytes_out", res.Size,
			}
			if isProxyPath(req.URL.Path) {
				kind := model.TargetAPI
				if c.QueryParam("target") != "" {
					kind = model.TargetAudio
				}
				attrs = append(attrs, "kind", kind.String())
				if r := req.Header.Get("Range"); r != "" {
					attrs = append(attrs, "range", r)
				}
			}

			level := slog.LevelInfo
			if res.Status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(req.Context(), level, "request", attrs...)

			return err
		}
	}
}

// SkipProxyPaths is an Echo Skipper that matches the proxy routes, whose
// response headers are limited to what the upstream relay sets.
func SkipProxyPaths(c echo.Context) bool {
	return isProxyPath(c.Request().URL.Path)
}

func isProxyPath(path string) bool {
	return path == "/proxy" || path == "/api/proxy" || strings.HasPrefix(path, "/api/proxy/")
}
