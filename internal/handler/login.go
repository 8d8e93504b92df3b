package handler

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"music-edge/internal/config"
)

// authCookieMaxAge is two days, in seconds.
const authCookieMaxAge = 172800

// LoginHandler checks the shared password and issues the auth cookie.
type LoginHandler struct {
	secret string
	logger *slog.Logger
}

// NewLoginHandler creates a LoginHandler for cfg.Auth.Password. An empty
// password accepts every login.
func NewLoginHandler(cfg *config.Config, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{
		secret: cfg.Auth.Password,
		logger: logger.With("component", "login_handler"),
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Handle accepts POST {"password": "..."}.
func (h *LoginHandler) Handle(c echo.Context) error {
	req := c.Request()
	if req.Method != http.MethodPost {
		return c.JSON(http.StatusMethodNotAllowed, map[string]any{
			"success": false,
			"error":   "Method not allowed",
		})
	}

	// A malformed body is an empty password.
	var body loginRequest
	_ = json.NewDecoder(req.Body).Decode(&body)

	if h.secret != "" && subtle.ConstantTimeCompare([]byte(body.Password), []byte(h.secret)) != 1 {
		h.logger.Info("login rejected", "remote_ip", c.RealIP())
		return c.JSON(http.StatusUnauthorized, map[string]bool{"success": false})
	}

	c.SetCookie(&http.Cookie{
		Name:     "auth",
		Value:    base64.StdEncoding.EncodeToString([]byte(h.secret)),
		Path:     "/",
		MaxAge:   authCookieMaxAge,
		HttpOnly: true,
		Secure:   strings.EqualFold(req.Header.Get("X-Forwarded-Proto"), "https"),
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
