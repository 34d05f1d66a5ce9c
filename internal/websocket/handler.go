package websocket

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/util"
	"go.uber.org/zap"
)

// TokenValidator resolves a session token to a user id.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// Handler upgrades authenticated requests to websocket connections.
//
// It is a plain http.Handler: gin's response writer refuses to be hijacked once
// the 101 header has been flushed, so the upgrade route must be served outside
// the gin engine.
type Handler struct {
	hub            *Hub
	tokens         TokenValidator
	allowedOrigins []string
}

func NewHandler(hub *Hub, tokens TokenValidator, allowedOrigins []string) *Handler {
	return &Handler{hub: hub, tokens: tokens, allowedOrigins: allowedOrigins}
}

// ServeHTTP accepts the token from ?token= (browsers cannot set headers on
// websocket requests) or the Authorization header.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimPrefix(header, "Bearer ")
	}
	if token == "" {
		writeError(w, apperrors.Unauthorized("no authentication token provided"))
		return
	}
	userID, err := h.tokens.ValidateToken(token)
	if err != nil {
		writeError(w, apperrors.Unauthorized("invalid token"))
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.allowedOrigins,
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Warn("Websocket upgrade failed", logger.WithUserID(userID), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, userID)
	h.hub.Register(client)
	client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event: "connected",
		Data:  map[string]interface{}{"user_id": userID},
	}))

	go client.WritePump()
	client.ReadPump()
}

// Status reports whether a user currently has an open connection.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.hub.IsOnline(c.Param("id"))})
}

func writeError(w http.ResponseWriter, apiErr *apperrors.APIError) {
	logger.Log.Warn("Websocket request rejected", zap.String("code", string(apiErr.Code)), zap.String("message", apiErr.Message))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(util.ErrorResponse{Code: string(apiErr.Code), Message: apiErr.Message})
}
