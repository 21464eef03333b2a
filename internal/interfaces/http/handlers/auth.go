// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

// AuthHandler issues admin API tokens. There is a single operator credential
// configured through the environment; buyers never log in.
type AuthHandler struct {
	jwtManager *auth.JWTManager
	config     *config.Config
	log        *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.Config, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		jwtManager: auth.NewJWTManager(cfg),
		config:     cfg,
		log:        log,
	}
}

// LoginRequest represents the admin login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if h.config.Admin.PasswordHash == "" ||
		email != strings.ToLower(h.config.Admin.Email) ||
		auth.VerifyPassword(req.Password, h.config.Admin.PasswordHash) != nil {
		h.log.WithField("email", email).Warn("Failed admin login attempt")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid credentials",
		})
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(email, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"data": gin.H{
			"access_token": token,
			"expires_in":   int(h.config.JWT.AccessTokenExpiry.Seconds()),
		},
	})
}
