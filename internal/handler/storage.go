package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"music-edge/internal/storage"
)

// StorageHandler serves the key-value storage endpoint. A nil store means
// no backend is available; every call then reports d1Available=false.
type StorageHandler struct {
	store  storage.Store
	logger *slog.Logger
}

// NewStorageHandler creates a StorageHandler.
func NewStorageHandler(store storage.Store, logger *slog.Logger) *StorageHandler {
	return &StorageHandler{
		store:  store,
		logger: logger.With("component", "storage_handler"),
	}
}

// Handle dispatches GET, POST, DELETE and OPTIONS.
func (h *StorageHandler) Handle(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")

	switch c.Request().Method {
	case http.MethodOptions:
		return c.NoContent(http.StatusNoContent)
	case http.MethodGet:
		return h.get(c)
	case http.MethodPost:
		return h.post(c)
	case http.MethodDelete:
		return h.delete(c)
	default:
		return c.JSON(http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	}
}

func (h *StorageHandler) get(c echo.Context) error {
	if h.store == nil {
		return unavailableWithData(c)
	}
	if c.QueryParam("status") != "" {
		return c.JSON(http.StatusOK, map[string]bool{"d1Available": true})
	}

	data, err := h.store.Get(c.Request().Context(), splitKeys(c.QueryParam("keys")))
	if err != nil {
		return h.storeError(c, "get", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"d1Available": true, "data": data})
}

func (h *StorageHandler) post(c echo.Context) error {
	if h.store == nil {
		return unavailableWithData(c)
	}

	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		body.Data = nil
	}

	var payload map[string]json.RawMessage
	if !isJSONObject(body.Data) || json.Unmarshal(body.Data, &payload) != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
	}

	entries := make(map[string]string, len(payload))
	for k, raw := range payload {
		if k == "" {
			continue
		}
		entries[k] = storedValue(raw)
	}
	if len(entries) > 0 {
		if err := h.store.Upsert(c.Request().Context(), entries); err != nil {
			return h.storeError(c, "upsert", err)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"d1Available": true, "updated": len(entries)})
}

func (h *StorageHandler) delete(c echo.Context) error {
	if h.store == nil {
		return c.JSON(http.StatusOK, map[string]bool{"d1Available": false})
	}

	var body struct {
		Keys []any `json:"keys"`
	}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		body.Keys = nil
	}

	keys := make([]string, 0, len(body.Keys))
	for _, k := range body.Keys {
		if s, ok := k.(string); ok && s != "" {
			keys = append(keys, s)
		}
	}
	if len(keys) > 0 {
		if err := h.store.Delete(c.Request().Context(), keys); err != nil {
			return h.storeError(c, "delete", err)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"d1Available": true, "deleted": len(keys)})
}

func (h *StorageHandler) storeError(c echo.Context, op string, err error) error {
	h.logger.Error("storage operation failed", "op", op, "err", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Storage error"})
}

func unavailableWithData(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"d1Available": false, "data": map[string]string{}})
}

// splitKeys parses a comma-separated key list, dropping blanks.
func splitKeys(param string) []string {
	var keys []string
	for _, k := range strings.Split(param, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// storedValue flattens a JSON value to the string kept in the store: null is
// empty, strings are unquoted, anything else keeps its compact JSON text.
func storedValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0 || string(raw) == "null":
		return ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
