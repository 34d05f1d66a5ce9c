package util

import (
	"github.com/gin-gonic/gin"
)

// ContextUserIDKey is where the auth middleware stores the caller's id.
const ContextUserIDKey = "user_id"

// GetUserIDFromContext returns the authenticated caller. When there is none it
// writes a 401 and returns false, so handlers can simply return.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(ContextUserIDKey)
	if userID == "" {
		RespondUnauthorized(c)
		return "", false
	}
	return userID, true
}

// OptionalUserID returns the caller's id, or "" for anonymous requests.
func OptionalUserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}
