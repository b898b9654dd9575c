package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/raffle-ticketing/internal/config"
	"github.com/iliyamo/raffle-ticketing/internal/utils"
)

// AuthHandler issues admin access tokens.  The single administrator is
// configured through ADMIN_USERNAME / ADMIN_PASSWORD; account management is
// out of scope.
type AuthHandler struct {
	Cfg          config.Config
	passwordHash string
}

// NewAuthHandler hashes the configured admin password unless it already is
// a bcrypt hash.
func NewAuthHandler(cfg config.Config) (*AuthHandler, error) {
	hash := cfg.AdminPassword
	if !utils.IsBcryptHash(hash) {
		h, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			return nil, err
		}
		hash = h
	}
	return &AuthHandler{Cfg: cfg, passwordHash: hash}, nil
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResp struct {
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Token    string    `json:"token"`
	Expires  time.Time `json:"expires"`
}

// Login: verify credentials and return an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.Cfg.AdminUsername)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passOK := utils.VerifyPassword(h.passwordHash, req.Password)
	if !userOK || !passOK {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, h.Cfg.AdminUsername, h.Cfg.AdminRole, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, loginResp{
		Username: h.Cfg.AdminUsername,
		Role:     h.Cfg.AdminRole,
		Token:    access.Token,
		Expires:  access.Exp,
	})
}
