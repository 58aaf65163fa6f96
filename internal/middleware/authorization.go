package middleware

import (
	"context"
	"errors"
	"net/http"

	"microearn/internal/model"
	"microearn/internal/service"
	"microearn/pkg/auth"
	"microearn/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const UserKey = "session_user"

type SessionReader interface {
	Session(ctx context.Context, userID string) (*model.User, error)
}

type Authorization struct {
	sessions SessionReader
}

func NewAuthorization(sessions SessionReader) *Authorization {
	return &Authorization{
		sessions: sessions,
	}
}

// UserOnly requires a user token whose session still exists, so tokens stop
// working after logout.
func (a *Authorization) UserOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		claims, ok := auth.ClaimsFromContext(c)
		if !ok {
			log.Error("auth claims not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if claims.Role != auth.RoleUser {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user access required"})
			return
		}

		user, err := a.sessions.Session(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, service.ErrSessionNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
				return
			}
			log.Error("failed to get session", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

func (a *Authorization) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		claims, ok := auth.ClaimsFromContext(c)
		if !ok {
			log.Error("auth claims not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if claims.Role != auth.RoleAdmin {
			log.Info("unauthorized access attempt to admin endpoint",
				zap.String("subject", claims.Subject))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Set("is_admin", true)
		c.Next()
	}
}

// CurrentUser returns the user stored by UserOnly.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*model.User)
	return user, ok
}
