package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"geomodel/internal/config"
	"geomodel/internal/models"
	"geomodel/internal/security"
)

const currentUserKey = "current_user"

type UserSource interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

type SessionSource interface {
	GetByID(ctx context.Context, id string) (models.Session, error)
	Touch(ctx context.Context, id string) error
}

// Auth requires a valid bearer token backed by a live session and an active
// account.
func Auth(cfg *config.AppConfig, users UserSource, sessions SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := resolveUser(c, cfg, users, sessions)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if user.Status != models.UserStatusActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user_inactive"})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// Identity resolves the caller when a token is present but lets anonymous
// requests through; visibility checks downstream handle the rest.
func Identity(cfg *config.AppConfig, users UserSource, sessions SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := resolveUser(c, cfg, users, sessions); ok && user.Status == models.UserStatusActive {
			c.Set(currentUserKey, user)
		}
		c.Next()
	}
}

func resolveUser(c *gin.Context, cfg *config.AppConfig, users UserSource, sessions SessionSource) (models.User, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return models.User{}, false
	}
	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTAccessSecret)
	if err != nil {
		return models.User{}, false
	}

	session, err := sessions.GetByID(c.Request.Context(), claims.SessionID)
	if err != nil || session.UserID != claims.UserID {
		return models.User{}, false
	}

	user, err := users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		return models.User{}, false
	}

	_ = sessions.Touch(c.Request.Context(), session.ID)

	return user, true
}

// CurrentUserID returns the authenticated account id, empty for anonymous.
func CurrentUserID(c *gin.Context) string {
	val, exists := c.Get(currentUserKey)
	if !exists {
		return ""
	}
	user, ok := val.(models.User)
	if !ok {
		return ""
	}
	return user.ID
}

// CurrentUser returns the authenticated account, if any.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
