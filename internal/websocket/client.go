package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/zfogg/showcase/internal/logger"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// Client is one websocket connection owned by a user.
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	UserID string

	send        chan []byte
	ConnectedAt time.Time

	rateLimiter *RateLimiter

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// RateLimiter is a token bucket guarding inbound frames.
type RateLimiter struct {
	tokens    float64
	maxTokens float64
	refill    float64
	lastTime  time.Time
	mu        sync.Mutex
}

func NewRateLimiter(maxPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:    float64(burst),
		maxTokens: float64(burst),
		refill:    float64(maxPerSecond),
		lastTime:  time.Now(),
	}
}

func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.tokens = min(r.maxTokens, r.tokens+now.Sub(r.lastTime).Seconds()*r.refill)
	r.lastTime = now
	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:        conn,
		hub:         hub,
		UserID:      userID,
		send:        make(chan []byte, sendBufferSize),
		ConnectedAt: time.Now(),
		rateLimiter: NewRateLimiter(5, 10),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// enqueue hands data to the write pump without blocking.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		logger.Log.Debug("Websocket send buffer full, dropping message", logger.WithUserID(c.UserID))
		return false
	}
}

// Send encodes and queues msg.
func (c *Client) Send(msg *Message) bool {
	data, err := msg.Encode()
	if err != nil {
		return false
	}
	return c.enqueue(data)
}

// ReadPump handles inbound frames until the connection drops. Clients only send pings.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, cancel := context.WithTimeout(c.ctx, pongWait)
		_, data, err := c.conn.Read(readCtx)
		cancel()
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && c.ctx.Err() == nil {
				logger.Log.Debug("Websocket read ended", logger.WithUserID(c.UserID), zap.Error(err))
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.Send(NewErrorMessage("rate_limited", "Too many messages, please slow down"))
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.Send(NewErrorMessage("invalid_json", "Failed to parse message"))
			continue
		}
		switch msg.Type {
		case MessageTypePing:
			c.Send(NewReply(&msg, MessageTypePong, nil))
		default:
			c.Send(NewErrorMessage("unknown_type", "Unsupported message type"))
		}
	}
}

// WritePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.send:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Log.Debug("Websocket write failed", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Close shuts the connection once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "closing")
	}
}
