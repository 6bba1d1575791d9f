package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-analytics/internal/config"
	"github.com/iliyamo/rental-analytics/internal/utils"
)

// AuthHandler issues access tokens to the configured API client.
type AuthHandler struct {
	secret     string
	ttl        time.Duration
	clientID   string
	secretHash string
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{
		secret:     cfg.JWTSecret,
		ttl:        time.Duration(cfg.AccessTTLMin) * time.Minute,
		clientID:   cfg.ClientID,
		secretHash: cfg.ClientSecretHash,
	}
}

type tokenReq struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Token exchanges client credentials for an ANALYST access token.
func (h *AuthHandler) Token(c echo.Context) error {
	var req tokenReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.ClientID == "" || req.ClientSecret == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id/client_secret required"})
	}

	idOK := subtle.ConstantTimeCompare([]byte(req.ClientID), []byte(h.clientID)) == 1
	// Always run bcrypt so an unknown client id costs as much as a bad secret.
	secretOK := utils.VerifySecret(h.secretHash, req.ClientSecret)
	if !idOK || !secretOK {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	tok, err := utils.NewAccessToken(h.secret, h.clientID, utils.RoleAnalyst, h.ttl)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: tok.Token, TokenType: "Bearer", ExpiresAt: tok.Exp})
}
