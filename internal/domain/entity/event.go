package entity

import "time"

// Event type discriminants. The set is closed: dispatch sites switch over it
// and new kinds are added here, never invented at call sites.
const (
	EventTypeBidUpdate        = "BID_UPDATE"
	EventTypeAuctionStatus    = "AUCTION_STATUS"
	EventTypeError            = "ERROR"
	EventTypeConnectionStatus = "CONNECTION_STATUS"
)

type BidUpdateEvent struct {
	Type         string    `json:"type"`
	EventID      string    `json:"event_id"`
	ItemID       string    `json:"item_id"`
	CurrentPrice float64   `json:"current_price"`
	BidderID     string    `json:"bidder_id"`
	Timestamp    time.Time `json:"timestamp"`
}

type AuctionStatusEvent struct {
	Type      string     `json:"type"`
	EventID   string     `json:"event_id"`
	ItemID    string     `json:"item_id"`
	Status    ItemStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}

type ErrorEvent struct {
	Type      string    `json:"type"`
	EventID   string    `json:"event_id"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type ConnectionStatusEvent struct {
	Type         string    `json:"type"`
	EventID      string    `json:"event_id"`
	Status       string    `json:"status"`
	ConnectionID string    `json:"connection_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
