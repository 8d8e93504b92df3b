package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"

	"music-edge/internal/config"
	"music-edge/internal/storage"
)

func TestHealthz(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHealthHandler(&config.Config{}, "test", nil)
	if err := h.Healthz(c); err != nil {
		t.Fatalf("Healthz() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestStatus(t *testing.T) {
	store, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.sqlite3"))
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	defer func() { _ = store.Close() }()

	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			APIBaseURL:  "https://music-api.gdstudio.xyz/api.php",
			AudioDomain: "kuwo.cn",
		},
		Storage: config.StorageConfig{Driver: config.StorageSQLite},
	}

	tests := []struct {
		name      string
		store     storage.Store
		available bool
	}{
		{"with store", store, true},
		{"without store", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/proxy/status", http.NoBody)
			rec := httptest.NewRecorder()

			h := NewHealthHandler(cfg, "1.2.3", tt.store)
			if err := h.Status(e.NewContext(req, rec)); err != nil {
				t.Fatalf("Status() error = %v", err)
			}

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			want := map[string]any{
				"status":            "ok",
				"version":           "1.2.3",
				"api_base_url":      "https://music-api.gdstudio.xyz/api.php",
				"audio_domain":      "kuwo.cn",
				"storage_driver":    "sqlite",
				"storage_available": tt.available,
			}
			for k, v := range want {
				if body[k] != v {
					t.Errorf("body.%s = %v, want %v", k, body[k], v)
				}
			}
		})
	}
}
