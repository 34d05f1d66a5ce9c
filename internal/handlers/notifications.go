package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/showcase/internal/util"
)

// GetNotifications returns the caller's inbox, newest first
// GET /api/v1/notifications
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c, 20, 100)
	ctx := c.Request.Context()

	list, err := h.notifications.List(ctx, userID, limit, offset)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	unread, err := h.notifications.UnreadCount(ctx, userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": list,
		"unread":        unread,
		"meta":          gin.H{"limit": limit, "offset": offset, "count": len(list)},
	})
}

// GetUnreadCount returns the badge count
// GET /api/v1/notifications/unread-count
func (h *Handlers) GetUnreadCount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	unread, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": unread})
}

// MarkAllNotificationsRead marks the whole inbox read
// POST /api/v1/notifications/read
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

// MarkNotificationRead marks one notification read
// POST /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}
