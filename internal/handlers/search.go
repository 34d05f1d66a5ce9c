package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/showcase/internal/database"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/search"
	"github.com/zfogg/showcase/internal/util"
)

// Search finds projects or users
// GET /api/v1/search?q=&type=projects|users&limit=
func (h *Handlers) Search(c *gin.Context) {
	typ, err := search.ParseType(c.Query("type"))
	if err != nil {
		util.RespondValidationError(c, "type", "type must be projects or users")
		return
	}
	limit := util.ParseInt(c.Query("limit"), search.DefaultLimit)
	res, err := h.search.Search(c.Request.Context(), c.Query("q"), typ, limit)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Health reports whether the database answers
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := database.Health(ctx, h.db); err != nil {
		logger.WarnWithFields("Health check failed", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"service":   "showcase-api",
	})
}
