package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/showcase/internal/util"
)

// ListGroups lists groups, largest first
// GET /api/v1/groups
func (h *Handlers) ListGroups(c *gin.Context) {
	limit, offset := util.Pagination(c, 20, 100)
	groups, err := h.discussions.ListGroups(c.Request.Context(), limit, offset)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
		"meta":   gin.H{"limit": limit, "offset": offset, "count": len(groups)},
	})
}

// CreateGroup creates a group with the caller as admin
// POST /api/v1/groups
func (h *Handlers) CreateGroup(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid group body")
		return
	}
	group, err := h.discussions.CreateGroup(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// GetGroup returns a group with its member list
// GET /api/v1/groups/:id
func (h *Handlers) GetGroup(c *gin.Context) {
	detail, err := h.discussions.GetGroup(c.Request.Context(), util.OptionalUserID(c), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": detail})
}

// JoinGroup adds the caller to a group
// POST /api/v1/groups/:id/members
func (h *Handlers) JoinGroup(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.social.JoinGroup(c.Request.Context(), userID, c.Param("id")); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": true})
}

// LeaveGroup removes the caller from a group
// DELETE /api/v1/groups/:id/members
func (h *Handlers) LeaveGroup(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.social.LeaveGroup(c.Request.Context(), userID, c.Param("id")); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": false})
}

// ListDiscussions lists a group's discussions for its members
// GET /api/v1/groups/:id/discussions
func (h *Handlers) ListDiscussions(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c, 20, 100)
	list, err := h.discussions.ListDiscussions(c.Request.Context(), userID, c.Param("id"), limit, offset)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"discussions": list,
		"meta":        gin.H{"limit": limit, "offset": offset, "count": len(list)},
	})
}

// CreateDiscussion opens a discussion in a group
// POST /api/v1/groups/:id/discussions
func (h *Handlers) CreateDiscussion(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid discussion body")
		return
	}
	d, err := h.discussions.CreateDiscussion(c.Request.Context(), userID, c.Param("id"), req.Title, req.Body)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"discussion": d})
}

// GetDiscussion returns one discussion
// GET /api/v1/discussions/:id
func (h *Handlers) GetDiscussion(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	d, err := h.discussions.GetDiscussion(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discussion": d})
}

// GetReplies returns the page of replies after ?after=<reply id>, oldest first
// GET /api/v1/discussions/:id/replies
func (h *Handlers) GetReplies(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	page, err := h.discussions.ListReplies(c.Request.Context(), userID, c.Param("id"), c.Query("after"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateReply replies to a discussion
// POST /api/v1/discussions/:id/replies
func (h *Handlers) CreateReply(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid reply body")
		return
	}
	reply, err := h.discussions.AddReply(c.Request.Context(), userID, c.Param("id"), req.Body)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reply": reply})
}
