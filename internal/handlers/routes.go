package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/util"
)

// Middleware is the per-route middleware the API needs from the server.
type Middleware struct {
	RequireAuth  gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	// DiscoverCache wraps the discover feed. Nil disables caching.
	DiscoverCache gin.HandlerFunc
}

// RegisterRoutes mounts the API on r.
func (h *Handlers) RegisterRoutes(r *gin.Engine, mw Middleware) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/password-reset", h.RequestPasswordReset)
		authGroup.POST("/password-reset/confirm", h.ConfirmPasswordReset)
		authGroup.GET("/google", h.GoogleOAuth)
		authGroup.GET("/google/callback", h.GoogleCallback)
		authGroup.GET("/me", mw.RequireAuth, h.Me)
		authGroup.POST("/2fa/setup", mw.RequireAuth, h.SetupTwoFactor)
		authGroup.POST("/2fa/enable", mw.RequireAuth, h.EnableTwoFactor)
		authGroup.POST("/2fa/disable", mw.RequireAuth, h.DisableTwoFactor)
	}

	feedGroup := api.Group("/feed")
	{
		discover := []gin.HandlerFunc{mw.OptionalAuth}
		if mw.DiscoverCache != nil {
			discover = append(discover, mw.DiscoverCache)
		}
		feedGroup.GET("/discover", append(discover, h.DiscoverFeed)...)
		feedGroup.GET("/following", mw.RequireAuth, h.FollowingFeed)
	}

	projectGroup := api.Group("/projects")
	{
		projectGroup.POST("", mw.RequireAuth, h.CreateProject)
		projectGroup.GET("/:id", mw.OptionalAuth, h.GetProject)
		projectGroup.PUT("/:id", mw.RequireAuth, h.UpdateProject)
		projectGroup.DELETE("/:id", mw.RequireAuth, h.DeleteProject)

		projectGroup.POST("/:id/like", mw.RequireAuth, h.LikeProject)
		projectGroup.DELETE("/:id/like", mw.RequireAuth, h.UnlikeProject)
		projectGroup.POST("/:id/like/toggle", mw.RequireAuth, h.ToggleLike)

		projectGroup.GET("/:id/comments", mw.OptionalAuth, h.GetComments)
		projectGroup.POST("/:id/comments", mw.RequireAuth, h.CreateComment)
	}
	api.DELETE("/comments/:id", mw.RequireAuth, h.DeleteComment)

	users := api.Group("/users")
	{
		// "me" routes are registered before the :id wildcard routes that share a prefix.
		users.PUT("/me", mw.RequireAuth, h.UpdateMyProfile)
		users.POST("/me/photo", mw.RequireAuth, h.UploadProfilePhoto)

		users.GET("/:id", mw.OptionalAuth, h.GetUserProfile)
		users.GET("/:id/projects", mw.OptionalAuth, h.GetUserProjects)
		users.GET("/:id/followers", h.GetFollowers)
		users.GET("/:id/following", h.GetFollowing)
		users.POST("/:id/follow", mw.RequireAuth, h.FollowUser)
		users.DELETE("/:id/follow", mw.RequireAuth, h.UnfollowUser)
	}

	groups := api.Group("/groups")
	{
		groups.GET("", h.ListGroups)
		groups.POST("", mw.RequireAuth, h.CreateGroup)
		groups.GET("/:id", mw.OptionalAuth, h.GetGroup)
		groups.POST("/:id/members", mw.RequireAuth, h.JoinGroup)
		groups.DELETE("/:id/members", mw.RequireAuth, h.LeaveGroup)
		groups.GET("/:id/discussions", mw.RequireAuth, h.ListDiscussions)
		groups.POST("/:id/discussions", mw.RequireAuth, h.CreateDiscussion)
	}

	discussionGroup := api.Group("/discussions", mw.RequireAuth)
	{
		discussionGroup.GET("/:id", h.GetDiscussion)
		discussionGroup.GET("/:id/replies", h.GetReplies)
		discussionGroup.POST("/:id/replies", h.CreateReply)
	}

	notifications := api.Group("/notifications", mw.RequireAuth)
	{
		notifications.GET("", h.GetNotifications)
		notifications.GET("/unread-count", h.GetUnreadCount)
		notifications.POST("/read", h.MarkAllNotificationsRead)
		notifications.POST("/:id/read", h.MarkNotificationRead)
	}

	api.GET("/search", h.Search)

	if h.wsHandler != nil {
		// the upgrade itself is served by Handler, in front of the engine
		api.GET("/ws/online/:id", mw.RequireAuth, h.wsHandler.Status)
	} else {
		api.GET("/ws", func(c *gin.Context) {
			util.RespondWithAPIError(c, apperrors.ServiceUnavailable("realtime push"))
		})
	}
}

// WebSocketPath is the realtime upgrade route.
const WebSocketPath = "/api/v1/ws"

// Handler returns the server's root handler: the websocket upgrade on
// WebSocketPath when a hub is configured, and the gin engine for everything else.
func (h *Handlers) Handler(r *gin.Engine) http.Handler {
	if h.wsHandler == nil {
		return r
	}
	mux := http.NewServeMux()
	mux.Handle("GET "+WebSocketPath, h.wsHandler)
	mux.Handle("/", r)
	return mux
}
