package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/showcase/internal/repository"
	"github.com/zfogg/showcase/internal/util"
)

// DiscoverFeed lists every project, newest first unless ?order=oldest
// GET /api/v1/feed/discover
func (h *Handlers) DiscoverFeed(c *gin.Context) {
	f, err := h.feed.Discover(c.Request.Context(), repository.ParseOrder(c.Query("order")))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// FollowingFeed lists public projects by the people the caller follows
// GET /api/v1/feed/following
func (h *Handlers) FollowingFeed(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	f, err := h.feed.Following(c.Request.Context(), userID, repository.ParseOrder(c.Query("order")))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}
