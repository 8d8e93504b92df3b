// Package client provides the upstream HTTP client shared by the API and audio paths.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"music-edge/internal/config"
	"music-edge/internal/metrics"
	"music-edge/internal/model"
)

const maxRedirects = 10

// RedirectGuard vets every redirect hop before the client follows it.
type RedirectGuard func(u *url.URL) error

type redirectGuardKey struct{}

// WithRedirectGuard returns a context whose upstream requests only follow
// redirects accepted by guard.
func WithRedirectGuard(ctx context.Context, guard RedirectGuard) context.Context {
	return context.WithValue(ctx, redirectGuardKey{}, guard)
}

// UpstreamClient sends requests to the metadata API and the audio origin.
type UpstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		// Bodies are relayed byte-for-byte, so the transport must not
		// negotiate gzip and decode it behind our back.
		DisableCompression: true,
		// Only the wait for response headers is bounded; audio bodies may
		// legitimately stream for much longer.
		ResponseHeaderTimeout: time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &UpstreamClient{
		httpClient: &http.Client{
			Transport:     transport,
			CheckRedirect: checkRedirect,
		},
		logger:  logger.With("component", "upstream_client"),
		metrics: m,
	}
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if guard, ok := req.Context().Value(redirectGuardKey{}).(RedirectGuard); ok && guard != nil {
		if err := guard(req.URL); err != nil {
			return fmt.Errorf("redirect to %s: %w", req.URL.Host, err)
		}
	}
	return nil
}

// Do executes an HTTP request against the upstream and returns the raw response.
// The caller is responsible for closing the response body.
func (c *UpstreamClient) Do(kind model.TargetKind, req *http.Request) (*model.ProxyResponse, error) {
	c.logger.Debug("upstream request",
		"kind", kind.String(),
		"method", req.Method,
		"host", req.URL.Host,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via ProxyResponse
	duration := time.Since(start).Seconds()

	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(kind.String()).Observe(duration)
	}

	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(kind.String(), strconv.Itoa(resp.StatusCode)).Inc()
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// DoStream executes a bodiless request and returns the response body as a stream.
// The caller is responsible for closing the returned ReadCloser.
// The provided context controls the lifetime of the upstream request:
// when the context is canceled (e.g. client disconnects), the upstream
// request is also canceled.
func (c *UpstreamClient) DoStream(ctx context.Context, kind model.TargetKind, method, rawURL string, header http.Header) (*model.ProxyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header

	return c.Do(kind, req)
}
