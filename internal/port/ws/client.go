package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/auction-service/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1024
	sendBufferSize = 64
)

// bidFrame is the single inbound message kind clients may send.
type bidFrame struct {
	Action string  `json:"action"`
	Amount float64 `json:"amount"`
}

type Client struct {
	connectionID string
	userID       string
	auctionID    string
	channels     []string
	conn         *websocket.Conn
	handler      *Handler

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// trySend queues a payload for the write pump without blocking. It reports
// false when the client is closed or its buffer is full. The mutex keeps the
// send and close ordered: eviction can close the client while its read pump
// is still producing local errors.
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// readPump consumes inbound frames until the connection drops. Bid frames go
// through the arbiter; anything the arbiter rejects comes back to this user
// over the private channel, never the auction topic.
func (c *Client) readPump() {
	defer c.handler.disconnect(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handler.touch(c)

		var frame bidFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Action != "bid" {
			c.sendLocalError("INVALID_MESSAGE", "expected {\"action\":\"bid\",\"amount\":<number>}")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err = c.handler.bidService.PlaceBid(ctx, c.auctionID, c.userID, frame.Amount)
		cancel()
		_ = err // rejection reaches the bidder through the private channel
	}
}

// writePump serializes all writes to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendLocalError reports a malformed frame straight to this connection
// without a round trip through the transport.
func (c *Client) sendLocalError(code, message string) {
	event := entity.ErrorEvent{
		Type:      entity.EventTypeError,
		EventID:   uuid.New().String(),
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.trySend(payload)
}
