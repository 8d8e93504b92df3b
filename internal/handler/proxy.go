package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"

	"github.com/labstack/echo/v4"

	"music-edge/internal/metrics"
	"music-edge/internal/model"
	"music-edge/internal/service"
)

// queryPattern matches the query part of URLs embedded in error messages.
// Audio URLs often carry signed tokens there.
var queryPattern = regexp.MustCompile(`(https?://[^\s"?]+)\?[^\s"]*`)

// ProxyHandler is the proxy dispatcher: it answers preflights, rejects
// unsupported methods and streams forwarded responses back to the client.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProxyHandler creates a ProxyHandler.
// The metrics parameter is optional; pass nil to disable rejection metrics.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger, m *metrics.Metrics) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
		metrics: m,
	}
}

// Handle dispatches on method and query. The request path is ignored.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	switch req.Method {
	case http.MethodOptions:
		hdr := c.Response().Header()
		hdr.Set("Access-Control-Allow-Origin", "*")
		hdr.Set("Access-Control-Allow-Methods", "GET,HEAD,OPTIONS")
		hdr.Set("Access-Control-Allow-Headers", "*")
		hdr.Set("Access-Control-Max-Age", "86400")
		return c.NoContent(http.StatusNoContent)
	case http.MethodGet, http.MethodHead:
	default:
		h.reject(metrics.ReasonMethodNotAllowed)
		return c.String(http.StatusMethodNotAllowed, "Method not allowed")
	}

	pr := &model.ProxyRequest{
		Ctx:      req.Context(),
		Method:   req.Method,
		RawQuery: req.URL.RawQuery,
		Header:   req.Header,
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	dst := c.Response().Header()
	for key, vals := range resp.Header {
		for _, v := range vals {
			dst.Add(key, v)
		}
	}
	// A nil entry stops net/http from sniffing a type for bodies the
	// upstream left untyped.
	if _, ok := resp.Header["Content-Type"]; !ok {
		dst["Content-Type"] = nil
	}

	c.Response().WriteHeader(resp.StatusCode)

	// The status line is already out, so a failed copy (client gone, upstream
	// reset) can only truncate the body; it is logged, not reported.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Warn("streaming response body",
			"err", sanitizeError(err),
			"method", req.Method,
		)
	}

	return nil
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrBadTarget):
		h.reject(metrics.ReasonBadTarget)
		return c.String(http.StatusBadRequest, "Invalid target")
	case errors.Is(err, service.ErrMissingTypes):
		h.reject(metrics.ReasonMissingTypes)
		return c.String(http.StatusBadRequest, "Missing types")
	}

	h.logger.Error("proxy error",
		"err", sanitizeError(err),
		"method", c.Request().Method,
	)

	if errors.Is(err, service.ErrRedirectNotAllowed) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream redirected outside the allowed domain",
		})
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "upstream request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream host unreachable",
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream connection failed",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "upstream request failed",
	})
}

func (h *ProxyHandler) reject(reason string) {
	if h.metrics != nil {
		h.metrics.ProxyRejections.WithLabelValues(reason).Inc()
	}
}

// sanitizeError redacts URL query strings from error messages.
func sanitizeError(err error) string {
	return queryPattern.ReplaceAllString(err.Error(), "${1}?[REDACTED]")
}
