package service

import (
	"math/rand"
	"net/http"
	"strings"

	"music-edge/internal/config"
	"music-edge/internal/model"
)

const apiAccept = "application/json, text/plain, */*"

// injector adds provider-specific headers to an outbound API request.
type injector func(dst http.Header, in *model.ProxyRequest)

// providers maps a provider hint (the source query value) to the extra
// headers its backend expects. Providers without an entry get only the
// base headers.
var providers = map[string]injector{
	"kuwo": injectKuwo,
}

// injectKuwo makes the request look like it came from a kuwo.cn browser
// session: that backend rejects calls without session cookies and a
// client IP.
func injectKuwo(dst http.Header, in *model.ProxyRequest) {
	token := newSessionToken()
	dst.Set("Referer", "https://www.kuwo.cn/search/list")
	dst.Set("Origin", "https://www.kuwo.cn")
	dst.Set("Accept-Language", "zh-CN,zh;q=0.9")
	dst.Set("X-Requested-With", "XMLHttpRequest")
	dst.Set("Cookie", "kw_token="+token+"; csrf="+token)
	dst.Set("csrf", token)

	if ip := clientIP(in.Header); ip != "" {
		dst.Set("X-Forwarded-For", ip)
		dst.Set("X-Real-IP", ip)
	}
}

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newSessionToken returns a throwaway 8-character base36 token. It only has
// to look like a session id; nothing ever validates it.
var newSessionToken = func() string {
	var b [8]byte
	for i := range b {
		b[i] = tokenAlphabet[rand.Intn(len(tokenAlphabet))]
	}
	return string(b[:])
}

// clientIP returns the first X-Forwarded-For entry, falling back to X-Real-IP.
func clientIP(h http.Header) string {
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return h.Get("X-Real-IP")
}

// RequestBuilder assembles outbound request headers. Only the headers it
// sets explicitly cross to the upstream; inbound headers are never copied
// wholesale. Every call returns a fresh http.Header.
type RequestBuilder struct {
	userAgent    string
	audioReferer string
	providers    map[string]injector
}

// NewRequestBuilder creates a RequestBuilder from the upstream config.
func NewRequestBuilder(cfg *config.Config) *RequestBuilder {
	return &RequestBuilder{
		userAgent:    cfg.Upstream.UserAgent,
		audioReferer: cfg.Upstream.AudioReferer,
		providers:    providers,
	}
}

func (b *RequestBuilder) base(in *model.ProxyRequest) http.Header {
	h := make(http.Header)
	ua := in.Header.Get("User-Agent")
	if ua == "" {
		ua = b.userAgent
	}
	h.Set("User-Agent", ua)
	return h
}

// Audio returns headers for an audio stream request. Range is carried over
// so seeking and partial content keep working.
func (b *RequestBuilder) Audio(in *model.ProxyRequest) http.Header {
	h := b.base(in)
	h.Set("Referer", b.audioReferer)
	if r := in.Header.Get("Range"); r != "" {
		h.Set("Range", r)
	}
	return h
}

// API returns headers for a metadata API request to the given provider.
func (b *RequestBuilder) API(provider string, in *model.ProxyRequest) http.Header {
	h := b.base(in)
	h.Set("Accept", apiAccept)
	if inject, ok := b.providers[provider]; ok {
		inject(h, in)
	}
	return h
}
