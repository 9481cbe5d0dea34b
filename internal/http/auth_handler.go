package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace/internal/service"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 10 * 60
)

// AuthHandler agrupa login local, login OAuth y manejo de refresh tokens.
type AuthHandler struct {
	logger  *zap.Logger
	members *service.MemberService
	oauth   *service.OAuthLoginService
	jwtServ *service.JWTService
}

func NewAuthHandler(logger *zap.Logger, members *service.MemberService, oauth *service.OAuthLoginService, jwtServ *service.JWTService) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		members: members,
		oauth:   oauth,
		jwtServ: jwtServ,
	}
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.members.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, "login", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RefreshToken maneja POST /auth/refresh.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid refresh request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.jwtServ == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
		return
	}
	tokens, err := h.jwtServ.RefreshPair(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout maneja POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid logout request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.jwtServ == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
		return
	}
	_ = h.jwtServ.RevokeRefresh(req.RefreshToken)
	c.Status(http.StatusNoContent)
}

// OAuthLoginURL maneja GET /auth/oauth/:provider/login-url.
// El state queda en una cookie para compararlo en el callback.
func (h *AuthHandler) OAuthLoginURL(c *gin.Context) {
	url, state, err := h.oauth.LoginURL(c.Param("provider"))
	if err != nil {
		writeError(c, h.logger, "oauth login url", err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/auth/oauth", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"url": url, "state": state})
}

// OAuthCallback maneja GET /auth/oauth/:provider/callback?code=&state=.
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	if providerErr := c.Query("error"); providerErr != "" {
		h.logger.Warn("oauth provider returned error", zap.String("provider", c.Param("provider")), zap.String("error", providerErr))
		c.JSON(http.StatusBadGateway, gin.H{"error": "oauth login failed"})
		return
	}
	if expected, err := c.Cookie(oauthStateCookie); err == nil && expected != "" {
		if subtle.ConstantTimeCompare([]byte(expected), []byte(c.Query("state"))) != 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
			return
		}
		c.SetCookie(oauthStateCookie, "", -1, "/auth/oauth", "", c.Request.TLS != nil, true)
	}

	result, err := h.oauth.Login(c.Request.Context(), c.Param("provider"), c.Query("code"))
	if err != nil {
		writeError(c, h.logger, "oauth login", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
