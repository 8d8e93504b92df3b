// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// TargetKind identifies which upstream a request is routed to.
type TargetKind int

const (
	// TargetAPI forwards to the metadata API.
	TargetAPI TargetKind = iota
	// TargetAudio streams from the allowlisted audio origin.
	TargetAudio
)

// String returns the metric/log label for the kind.
func (k TargetKind) String() string {
	if k == TargetAudio {
		return "audio"
	}
	return "api"
}

// ProxyRequest represents a client request to be forwarded upstream.
// Only the raw query matters; the inbound path is ignored.
type ProxyRequest struct {
	Ctx      context.Context
	Method   string
	RawQuery string
	Header   http.Header
}

// Target is the resolved destination of a ProxyRequest. Exactly one of
// RawURL (audio) or Query (API) is meaningful, selected by Kind.
type Target struct {
	Kind   TargetKind
	RawURL string

	// Query is the forwarded API query, already encoded in inbound order.
	Query string
	// Params is Query decoded, for lookups such as types and source.
	Params url.Values
}

// ProxyResponse represents the upstream response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
