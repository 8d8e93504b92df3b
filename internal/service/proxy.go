// Package service implements the core proxy forwarding logic.
package service

import (
	"fmt"
	"log/slog"
	"net/url"

	"music-edge/internal/client"
	"music-edge/internal/config"
	"music-edge/internal/metrics"
	"music-edge/internal/model"
)

// ProxyService resolves, validates and forwards proxy requests. It holds
// only immutable configuration, so a single instance serves all requests
// concurrently.
type ProxyService struct {
	client      *client.UpstreamClient
	builder     *RequestBuilder
	logger      *slog.Logger
	metrics     *metrics.Metrics
	apiBase     *url.URL
	audioDomain string
}

// NewProxyService creates a ProxyService.
// The metrics parameter is optional; pass nil to disable provider metrics.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*ProxyService, error) {
	u, err := url.Parse(cfg.Upstream.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream api_base_url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("upstream api_base_url %q is not absolute", cfg.Upstream.APIBaseURL)
	}

	return &ProxyService{
		client:      c,
		builder:     NewRequestBuilder(cfg),
		logger:      logger.With("component", "proxy_service"),
		metrics:     m,
		apiBase:     u,
		audioDomain: cfg.Upstream.AudioDomain,
	}, nil
}

// Forward resolves the request's target and sends it upstream, returning the
// response with its headers already filtered for the client.
// The caller is responsible for closing the response body.
//
// ErrBadTarget and ErrMissingTypes are returned before any outbound call is
// made. Upstream failures are wrapped and returned as-is; nothing is retried.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	target := ResolveTarget(pr.RawQuery, s.apiBase.RawQuery)
	if target.Kind == model.TargetAudio {
		return s.forwardAudio(pr, target)
	}
	return s.forwardAPI(pr, target)
}

func (s *ProxyService) forwardAudio(pr *model.ProxyRequest, target model.Target) (*model.ProxyResponse, error) {
	u, err := NormalizeAudioURL(target.RawURL, s.audioDomain)
	if err != nil {
		return nil, err
	}

	header := s.builder.Audio(pr)

	s.logger.Debug("forwarding audio request",
		"method", pr.Method,
		"host", u.Host,
		"range", header.Get("Range"),
	)

	ctx := client.WithRedirectGuard(pr.Ctx, s.checkAudioRedirect)
	resp, err := s.client.DoStream(ctx, model.TargetAudio, pr.Method, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("forward audio: %w", err)
	}

	resp.Header = FilterResponseHeaders(resp.Header, model.TargetAudio)
	return resp, nil
}

func (s *ProxyService) forwardAPI(pr *model.ProxyRequest, target model.Target) (*model.ProxyResponse, error) {
	if !target.Params.Has(paramTypes) {
		return nil, ErrMissingTypes
	}

	provider := target.Params.Get(paramSource)
	header := s.builder.API(provider, pr)

	if s.metrics != nil {
		s.metrics.ProviderRequests.WithLabelValues(metrics.NormalizeProvider(provider)).Inc()
	}

	u := *s.apiBase
	u.RawQuery = target.Query

	s.logger.Debug("forwarding api request",
		"method", pr.Method,
		"types", target.Params.Get(paramTypes),
		"source", provider,
	)

	resp, err := s.client.DoStream(pr.Ctx, model.TargetAPI, pr.Method, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("forward api: %w", err)
	}

	resp.Header = FilterResponseHeaders(resp.Header, model.TargetAPI)
	return resp, nil
}

// checkAudioRedirect keeps redirects on the audio path inside the allowlist.
func (s *ProxyService) checkAudioRedirect(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" || !hostAllowed(u.Hostname(), s.audioDomain) {
		return ErrRedirectNotAllowed
	}
	return nil
}
