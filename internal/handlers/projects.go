package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/showcase/internal/projects"
	"github.com/zfogg/showcase/internal/util"
)

// CreateProject publishes a project
// POST /api/v1/projects
func (h *Handlers) CreateProject(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var in projects.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		util.RespondBadRequest(c, "invalid project body")
		return
	}
	p, err := h.projects.Create(c.Request.Context(), userID, in)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": p})
}

// GetProject returns one project. Private projects are visible to their author only.
// GET /api/v1/projects/:id
func (h *Handlers) GetProject(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), util.OptionalUserID(c), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

// UpdateProject edits a project the caller wrote
// PUT /api/v1/projects/:id
func (h *Handlers) UpdateProject(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var in projects.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		util.RespondBadRequest(c, "invalid project body")
		return
	}
	p, err := h.projects.Update(c.Request.Context(), userID, c.Param("id"), in)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

// DeleteProject removes a project the caller wrote
// DELETE /api/v1/projects/:id
func (h *Handlers) DeleteProject(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.projects.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		util.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LikeProject likes a project
// POST /api/v1/projects/:id/like
func (h *Handlers) LikeProject(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	res, err := h.social.Like(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UnlikeProject removes the caller's like
// DELETE /api/v1/projects/:id/like
func (h *Handlers) UnlikeProject(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	res, err := h.social.Unlike(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ToggleLike flips the caller's like
// POST /api/v1/projects/:id/like/toggle
func (h *Handlers) ToggleLike(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	res, err := h.social.ToggleLike(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetComments lists a project's comments, oldest first
// GET /api/v1/projects/:id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	comments, err := h.projects.Comments(c.Request.Context(), util.OptionalUserID(c), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "count": len(comments)})
}

// CreateComment comments on a project
// POST /api/v1/projects/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid comment body")
		return
	}
	comment, err := h.projects.AddComment(c.Request.Context(), userID, c.Param("id"), req.Body)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// DeleteComment removes a comment. The commenter and the project author may delete it.
// DELETE /api/v1/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.projects.DeleteComment(c.Request.Context(), userID, c.Param("id")); err != nil {
		util.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
