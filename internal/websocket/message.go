package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/zfogg/showcase/internal/models"
)

// Message types exchanged with clients.
const (
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeSystem            = "system"
	MessageTypeError             = "error"
	MessageTypeNotification      = "notification"
	MessageTypeNotificationCount = "notification_count"
)

// Message is the envelope for every frame.
type Message struct {
	Type      string      `json:"type"`
	ID        string      `json:"id,omitempty"`
	ReplyTo   string      `json:"reply_to,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		ID:        uuid.New().String(),
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// NewReply answers original, linking the two by id.
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	m := NewMessage(msgType, payload)
	m.ReplyTo = original.ID
	return m
}

func NewErrorMessage(code, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// NotificationPayload mirrors a stored notification row.
type NotificationPayload struct {
	Notification *models.Notification `json:"notification"`
}

type NotificationCountPayload struct {
	Unread int64 `json:"unread"`
}

// Encode marshals m for the wire.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
