package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/showcase/internal/util"
)

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

func bearer(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			util.RespondUnauthorized(c, "authorization required")
			return
		}
		userID, err := tokens.ValidateToken(token)
		if err != nil {
			util.RespondWithAPIError(c, ToAPIError(err))
			return
		}
		c.Set(util.ContextUserIDKey, userID)
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the caller when a valid token is present
// and lets anonymous requests through.
func OptionalAuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearer(c); token != "" {
			if userID, err := tokens.ValidateToken(token); err == nil {
				c.Set(util.ContextUserIDKey, userID)
			}
		}
		c.Next()
	}
}
