package service

import (
	"errors"
	"testing"

	"music-edge/internal/model"
)

func TestNormalizeAudioURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "https forced to http", raw: "https://music.kuwo.cn/x", want: "http://music.kuwo.cn/x"},
		{name: "http kept", raw: "http://kuwo.cn/a.mp3?x=1", want: "http://kuwo.cn/a.mp3?x=1"},
		{name: "deep subdomain", raw: "https://er.sycdn.kuwo.cn/abc/def.mp3", want: "http://er.sycdn.kuwo.cn/abc/def.mp3"},
		{name: "uppercase host", raw: "HTTPS://Music.KUWO.CN/x", want: "http://Music.KUWO.CN/x"},
		{name: "port preserved", raw: "https://kuwo.cn:8443/x", want: "http://kuwo.cn:8443/x"},
		{name: "foreign host", raw: "http://evil.com/x.mp3", wantErr: true},
		{name: "suffix without dot", raw: "http://evilkuwo.cn/x.mp3", wantErr: true},
		{name: "allowlisted as prefix", raw: "http://kuwo.cn.evil.com/x.mp3", wantErr: true},
		{name: "userinfo trick", raw: "http://kuwo.cn@evil.com/x.mp3", wantErr: true},
		{name: "ftp scheme", raw: "ftp://kuwo.cn/x.mp3", wantErr: true},
		{name: "javascript scheme", raw: "javascript:alert(1)", wantErr: true},
		{name: "relative", raw: "/x.mp3", wantErr: true},
		{name: "malformed", raw: "http://%zz", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAudioURL(tt.raw, "kuwo.cn")
			if tt.wantErr {
				if !errors.Is(err, ErrBadTarget) {
					t.Fatalf("NormalizeAudioURL(%q) error = %v, want ErrBadTarget", tt.raw, err)
				}
				if got != nil {
					t.Errorf("NormalizeAudioURL(%q) returned %v alongside error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeAudioURL(%q) error = %v", tt.raw, err)
			}
			if got.Scheme != "http" {
				t.Errorf("Scheme = %q, want http", got.Scheme)
			}
			if got.String() != tt.want {
				t.Errorf("NormalizeAudioURL(%q) = %q, want %q", tt.raw, got.String(), tt.want)
			}
		})
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		wantKind model.TargetKind
		wantURL  string
	}{
		{
			name:     "target selects audio",
			rawQuery: "target=http%3A%2F%2Fkuwo.cn%2Fa.mp3&types=search",
			wantKind: model.TargetAudio,
			wantURL:  "http://kuwo.cn/a.mp3",
		},
		{
			name:     "first target wins",
			rawQuery: "target=http://a.kuwo.cn/1&target=http://b.kuwo.cn/2",
			wantKind: model.TargetAudio,
			wantURL:  "http://a.kuwo.cn/1",
		},
		{
			name:     "semicolon in target",
			rawQuery: "target=http://sv.kuwo.cn/a.mp3;x",
			wantKind: model.TargetAudio,
			wantURL:  "http://sv.kuwo.cn/a.mp3;x",
		},
		{
			name:     "malformed escape in target kept",
			rawQuery: "target=http://sv.kuwo.cn/a%zz.mp3",
			wantKind: model.TargetAudio,
			wantURL:  "http://sv.kuwo.cn/a%zz.mp3",
		},
		{
			name:     "empty target is api",
			rawQuery: "target=&types=search",
			wantKind: model.TargetAPI,
		},
		{
			name:     "no target is api",
			rawQuery: "types=search&source=kuwo",
			wantKind: model.TargetAPI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveTarget(tt.rawQuery, "")
			if got.Kind != tt.wantKind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.RawURL != tt.wantURL {
				t.Errorf("RawURL = %q, want %q", got.RawURL, tt.wantURL)
			}
			if got.Kind == model.TargetAudio && got.Query != "" {
				t.Errorf("audio target carries API query %q", got.Query)
			}
		})
	}
}

func TestAPIQuery(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		base     string
		want     string
	}{
		{
			name:     "strips target and callback",
			rawQuery: "types=json&source=kuwo&name=x&target=http://a&callback=cb",
			want:     "types=json&source=kuwo&name=x",
		},
		{
			name:     "values preserved",
			rawQuery: "types=search&name=%E5%91%A8%E6%9D%B0%E4%BC%A6&count=20&pages=1",
			want:     "types=search&name=%E5%91%A8%E6%9D%B0%E4%BC%A6&count=20&pages=1",
		},
		{
			name:     "repeated key keeps first position and last value",
			rawQuery: "types=a&source=kuwo&types=b",
			want:     "types=b&source=kuwo",
		},
		{
			name:     "space encoded as plus",
			rawQuery: "types=search&name=hello+world",
			want:     "types=search&name=hello+world",
		},
		{
			name:     "base query kept and overridden",
			rawQuery: "types=url&br=320",
			base:     "br=128&format=json",
			want:     "br=320&format=json&types=url",
		},
		{
			name:     "malformed escape kept literally",
			rawQuery: "types=x&bad=%zz&ok=1",
			want:     "types=x&bad=%25zz&ok=1",
		},
		{
			name:     "trailing percent kept",
			rawQuery: "types=search&name=100%",
			want:     "types=search&name=100%25",
		},
		{
			name:     "semicolon is data",
			rawQuery: "types=search&source=kuwo&name=AC;DC",
			want:     "types=search&source=kuwo&name=AC%3BDC",
		},
		{
			name:     "semicolon in types",
			rawQuery: "types=a;b",
			want:     "types=a%3Bb",
		},
		{
			name:     "only callback",
			rawQuery: "callback=jsonp123",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, params := APIQuery(tt.rawQuery, tt.base)
			if got != tt.want {
				t.Errorf("APIQuery() = %q, want %q", got, tt.want)
			}
			if params.Has(paramTarget) || params.Has(paramCallback) {
				t.Errorf("params = %v, must not contain target or callback", params)
			}
		})
	}
}

func TestAPIQuery_LenientParams(t *testing.T) {
	_, params := APIQuery("types=a;b&name=100%&q=50%25+off", "")
	want := map[string]string{"types": "a;b", "name": "100%", "q": "50% off"}
	for k, v := range want {
		if !params.Has(k) || params.Get(k) != v {
			t.Errorf("%s = %q (present %v), want %q", k, params.Get(k), params.Has(k), v)
		}
	}
}

func TestUnescapeLenient(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a+b", "a b"},
		{"%E5%91%A8", "周"},
		{"%zz", "%zz"},
		{"100%", "100%"},
		{"%4", "%4"},
		{"%41%", "A%"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := unescapeLenient(tt.in); got != tt.want {
				t.Errorf("unescapeLenient(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAPIQuery_ParamsDecoded(t *testing.T) {
	_, params := APIQuery("types=search&name=%E5%91%A8&source=kuwo", "")
	if params.Get("name") != "周" {
		t.Errorf("name = %q, want %q", params.Get("name"), "周")
	}
	if params.Get(paramSource) != "kuwo" {
		t.Errorf("source = %q, want %q", params.Get(paramSource), "kuwo")
	}
}
