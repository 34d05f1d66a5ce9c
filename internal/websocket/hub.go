package websocket

import (
	"context"
	"sync"

	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/metrics"
	"github.com/zfogg/showcase/internal/models"
	"go.uber.org/zap"
)

// Hub tracks connected clients per user and routes messages to them.
type Hub struct {
	// user id -> that user's connections (one per tab/device)
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run processes registrations until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// Shutdown closes every connection and stops Run.
func (h *Hub) Shutdown() {
	h.cancel()
	<-h.done
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
	metrics.Get().WebsocketClients.Inc()
	logger.Log.Debug("Websocket client connected", logger.WithUserID(client.UserID))
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.clients, client.UserID)
	}
	metrics.Get().WebsocketClients.Dec()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.clients {
		for c := range conns {
			c.Close()
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
}

// IsOnline reports whether the user has at least one open connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// SendToUser queues msg on every connection the user has open and reports how many
// connections accepted it. Slow connections drop the message.
func (h *Hub) SendToUser(userID string, msg *Message) int {
	data, err := msg.Encode()
	if err != nil {
		logger.Log.Warn("Failed to encode websocket message", zap.String("type", msg.Type), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.clients[userID] {
		if c.enqueue(data) {
			sent++
		}
	}
	return sent
}

// PushNotification delivers a stored notification to its recipient if they are connected.
func (h *Hub) PushNotification(n *models.Notification) {
	h.SendToUser(n.RecipientID, NewMessage(MessageTypeNotification, NotificationPayload{Notification: n}))
}

// PushUnreadCount tells the user's open sessions their current unread count.
func (h *Hub) PushUnreadCount(userID string, unread int64) {
	h.SendToUser(userID, NewMessage(MessageTypeNotificationCount, NotificationCountPayload{Unread: unread}))
}
