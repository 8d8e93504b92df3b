package service

import (
	"errors"
	"net/url"
	"strings"

	"music-edge/internal/model"
)

var (
	// ErrBadTarget is returned when the audio target URL is malformed, uses a
	// scheme other than http/https, or points outside the audio domain.
	ErrBadTarget = errors.New("invalid target")
	// ErrMissingTypes is returned when an API request lacks the types parameter.
	ErrMissingTypes = errors.New("missing types")
	// ErrRedirectNotAllowed is returned when the audio origin redirects
	// outside the audio domain.
	ErrRedirectNotAllowed = errors.New("redirect outside audio domain")
)

// Query parameters with special meaning to the dispatcher.
const (
	paramTarget   = "target"
	paramCallback = "callback"
	paramTypes    = "types"
	paramSource   = "source"
)

// NormalizeAudioURL validates rawURL against the audio domain allowlist and
// returns it with the scheme forced to plain http. The hostname must equal
// domain or be a subdomain of it, compared case-insensitively.
func NormalizeAudioURL(rawURL, domain string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, ErrBadTarget
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrBadTarget
	}
	if !hostAllowed(u.Hostname(), domain) {
		return nil, ErrBadTarget
	}

	u.Scheme = "http"
	return u, nil
}

func hostAllowed(host, domain string) bool {
	if host == "" || domain == "" {
		return false
	}
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// ResolveTarget picks the upstream for a raw inbound query. A non-empty
// target parameter always selects the audio path; everything else is an
// API request whose query is derived from base (the API base URL's own
// query) overlaid with the inbound parameters.
func ResolveTarget(rawQuery, base string) model.Target {
	if raw := firstValue(rawQuery, paramTarget); raw != "" {
		return model.Target{Kind: model.TargetAudio, RawURL: raw}
	}

	query, params := APIQuery(rawQuery, base)
	return model.Target{Kind: model.TargetAPI, Query: query, Params: params}
}

type queryPair struct {
	key   string
	value string
}

// APIQuery builds the outbound API query: the pairs of base followed by
// every inbound pair except target and callback. Order of first appearance
// is kept; a repeated key keeps its first position and takes the last value.
func APIQuery(rawQuery, base string) (string, url.Values) {
	var pairs []queryPair
	index := make(map[string]int)

	set := func(key, value string) {
		if i, ok := index[key]; ok {
			pairs[i].value = value
			return
		}
		index[key] = len(pairs)
		pairs = append(pairs, queryPair{key: key, value: value})
	}

	for _, p := range parseQuery(base) {
		set(p.key, p.value)
	}
	for _, p := range parseQuery(rawQuery) {
		if p.key == paramTarget || p.key == paramCallback {
			continue
		}
		set(p.key, p.value)
	}

	var b strings.Builder
	params := make(url.Values, len(pairs))
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
		params.Set(p.key, p.value)
	}
	return b.String(), params
}

// parseQuery splits a raw query into decoded pairs in order. Like a browser's
// URLSearchParams, ';' is ordinary data and a malformed escape is kept as
// literal text instead of dropping the pair.
func parseQuery(rawQuery string) []queryPair {
	var pairs []queryPair
	for rawQuery != "" {
		var part string
		part, rawQuery, _ = strings.Cut(rawQuery, "&")
		if part == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(part, "=")
		key := unescapeLenient(rawKey)
		if key == "" {
			continue
		}
		pairs = append(pairs, queryPair{key: key, value: unescapeLenient(rawValue)})
	}
	return pairs
}

// unescapeLenient decodes '+' as a space and every valid %XX escape; any '%'
// not followed by two hex digits stays as is.
func unescapeLenient(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}

func firstValue(rawQuery, key string) string {
	for _, p := range parseQuery(rawQuery) {
		if p.key == key {
			return p.value
		}
	}
	return ""
}
