package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseInt parses s, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// Pagination reads ?limit=&offset= with the limit clamped to [1, maxLimit].
func Pagination(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int) {
	limit = ParseInt(c.Query("limit"), defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = ParseInt(c.Query("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
