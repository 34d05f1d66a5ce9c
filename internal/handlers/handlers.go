// Package handlers exposes the services over the JSON HTTP API.
package handlers

import (
	"github.com/zfogg/showcase/internal/auth"
	"github.com/zfogg/showcase/internal/discussions"
	"github.com/zfogg/showcase/internal/feed"
	"github.com/zfogg/showcase/internal/notify"
	"github.com/zfogg/showcase/internal/profile"
	"github.com/zfogg/showcase/internal/projects"
	"github.com/zfogg/showcase/internal/search"
	"github.com/zfogg/showcase/internal/social"
	"github.com/zfogg/showcase/internal/websocket"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db            *gorm.DB
	auth          *auth.Service
	profiles      *profile.Service
	social        *social.Service
	projects      *projects.Service
	discussions   *discussions.Service
	notifications *notify.Service
	feed          *feed.Service
	search        *search.Service
	wsHandler     *websocket.Handler
}

// Services is everything the handlers call into.
type Services struct {
	DB            *gorm.DB
	Auth          *auth.Service
	Profiles      *profile.Service
	Social        *social.Service
	Projects      *projects.Service
	Discussions   *discussions.Service
	Notifications *notify.Service
	Feed          *feed.Service
	Search        *search.Service
}

// NewHandlers creates a new handlers instance
func NewHandlers(s Services) *Handlers {
	return &Handlers{
		db:            s.DB,
		auth:          s.Auth,
		profiles:      s.Profiles,
		social:        s.Social,
		projects:      s.Projects,
		discussions:   s.Discussions,
		notifications: s.Notifications,
		feed:          s.Feed,
		search:        s.Search,
	}
}

// SetWebSocketHandler enables /ws for real-time notifications
func (h *Handlers) SetWebSocketHandler(ws *websocket.Handler) {
	h.wsHandler = ws
}
