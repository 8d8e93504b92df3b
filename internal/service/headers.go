package service

import (
	"net/http"
	"strings"

	"music-edge/internal/model"
)

// safeResponseHeaders are the only upstream response headers relayed to the client.
var safeResponseHeaders = map[string]bool{
	"content-type":   true,
	"cache-control":  true,
	"accept-ranges":  true,
	"content-length": true,
	"content-range":  true,
	"etag":           true,
	"last-modified":  true,
	"expires":        true,
}

const (
	apiCacheControl   = "no-store"
	audioCacheControl = "public, max-age=3600"
	apiContentType    = "application/json; charset=utf-8"
)

// FilterResponseHeaders returns the relayable subset of upstream headers
// plus the injected CORS and cache headers. Matching is case-insensitive;
// relayed names keep the case they had upstream.
func FilterResponseHeaders(src http.Header, kind model.TargetKind) http.Header {
	dst := make(http.Header)
	for key, vals := range src {
		if len(vals) == 0 || !safeResponseHeaders[strings.ToLower(key)] {
			continue
		}
		dst[key] = []string{vals[0]}
	}

	if !hasValue(dst, "Cache-Control") {
		dropKey(dst, "Cache-Control")
		if kind == model.TargetAudio {
			dst.Set("Cache-Control", audioCacheControl)
		} else {
			dst.Set("Cache-Control", apiCacheControl)
		}
	}

	dst.Set("Access-Control-Allow-Origin", "*")

	if kind == model.TargetAPI && !hasValue(dst, "Content-Type") {
		dropKey(dst, "Content-Type")
		dst.Set("Content-Type", apiContentType)
	}

	return dst
}

// hasValue reports whether h carries a non-empty value for name, matching
// the key case-insensitively.
func hasValue(h http.Header, name string) bool {
	for key, vals := range h {
		if strings.EqualFold(key, name) && len(vals) > 0 && vals[0] != "" {
			return true
		}
	}
	return false
}

// dropKey removes every spelling of name from h.
func dropKey(h http.Header, name string) {
	for key := range h {
		if strings.EqualFold(key, name) {
			delete(h, key)
		}
	}
}
