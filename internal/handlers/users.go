package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/showcase/internal/profile"
	"github.com/zfogg/showcase/internal/util"
)

// maxPhotoForm bounds the multipart body read for a photo upload, file plus headers.
const maxPhotoForm = util.MaxImageSize + 1<<20

// GetUserProfile returns a profile by id or username
// GET /api/v1/users/:id
func (h *Handlers) GetUserProfile(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), util.OptionalUserID(c), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

// GetUserProjects lists a user's projects. Others see only the public ones.
// GET /api/v1/users/:id/projects
func (h *Handlers) GetUserProjects(c *gin.Context) {
	list, err := h.projects.ListByAuthor(c.Request.Context(), util.OptionalUserID(c), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": list, "count": len(list)})
}

// GetFollowers lists who follows a user
// GET /api/v1/users/:id/followers
func (h *Handlers) GetFollowers(c *gin.Context) {
	limit, offset := util.Pagination(c, 20, 100)
	users, err := h.social.Followers(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"meta":  gin.H{"limit": limit, "offset": offset, "count": len(users)},
	})
}

// GetFollowing lists who a user follows
// GET /api/v1/users/:id/following
func (h *Handlers) GetFollowing(c *gin.Context) {
	limit, offset := util.Pagination(c, 20, 100)
	users, err := h.social.Following(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"meta":  gin.H{"limit": limit, "offset": offset, "count": len(users)},
	})
}

// FollowUser follows a user
// POST /api/v1/users/:id/follow
func (h *Handlers) FollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.social.Follow(c.Request.Context(), userID, c.Param("id")); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": true})
}

// UnfollowUser stops following a user
// DELETE /api/v1/users/:id/follow
func (h *Handlers) UnfollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.social.Unfollow(c.Request.Context(), userID, c.Param("id")); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false})
}

// UpdateMyProfile edits the caller's profile and preferences
// PUT /api/v1/users/me
func (h *Handlers) UpdateMyProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var in profile.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.RespondBadRequest(c, "invalid profile body")
		return
	}
	user, err := h.profiles.Update(c.Request.Context(), userID, in)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UploadProfilePhoto replaces the caller's avatar from a multipart "photo" field
// POST /api/v1/users/me/photo
func (h *Handlers) UploadProfilePhoto(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoForm)
	fh, err := c.FormFile("photo")
	if err != nil {
		util.RespondValidationError(c, "photo", "a photo file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		util.RespondBadRequest(c, "could not read upload")
		return
	}
	defer f.Close()

	user, err := h.profiles.UploadPhoto(c.Request.Context(), userID, f, fh.Size, fh.Filename)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
