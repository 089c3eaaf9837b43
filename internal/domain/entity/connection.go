package entity

import "time"

type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "CONNECTED"
	ConnectionDisconnected ConnectionStatus = "DISCONNECTED"
	ConnectionError        ConnectionStatus = "ERROR"
)

// Connection tracks one websocket session. The auction core never mutates it
// directly; the gateway owns its lifecycle.
type Connection struct {
	ConnectionID   string           `json:"connection_id"`
	UserID         string           `json:"user_id,omitempty"`
	Status         ConnectionStatus `json:"status"`
	ConnectedAt    time.Time        `json:"connected_at"`
	DisconnectedAt time.Time        `json:"disconnected_at,omitempty"`
	LastActiveAt   time.Time        `json:"last_active_at"`
}

func NewConnection(connectionID, userID string) *Connection {
	now := time.Now().UTC()
	return &Connection{
		ConnectionID: connectionID,
		UserID:       userID,
		Status:       ConnectionConnected,
		ConnectedAt:  now,
		LastActiveAt: now,
	}
}

func (c *Connection) MarkDisconnected() {
	c.Status = ConnectionDisconnected
	c.DisconnectedAt = time.Now().UTC()
}

func (c *Connection) Touch() {
	c.LastActiveAt = time.Now().UTC()
}

// IdleSince reports whether the connection saw no activity within ttl of now.
func (c *Connection) IdleSince(now time.Time, ttl time.Duration) bool {
	return c.Status == ConnectionConnected && now.Sub(c.LastActiveAt) > ttl
}
