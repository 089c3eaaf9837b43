package entity

import (
	"errors"
	"time"
)

// Bid is immutable once committed. The item's version at commit time doubles
// as the tie-breaking sequence: no two accepted bids share one.
type Bid struct {
	ID       string    `bson:"_id,omitempty"`
	ItemID   string    `bson:"item_id"`
	BidderID string    `bson:"bidder_id"`
	Amount   float64   `bson:"amount"`
	PlacedAt time.Time `bson:"placed_at"`
	Sequence int64     `bson:"sequence"`
}

func NewBid(itemID, bidderID string, amount float64, placedAt time.Time) (*Bid, error) {
	if itemID == "" {
		return nil, errors.New("bid item ID cannot be empty")
	}
	if bidderID == "" {
		return nil, errors.New("bidder ID cannot be empty")
	}
	if amount <= 0 {
		return nil, errors.New("bid amount must be positive")
	}
	return &Bid{
		ItemID:   itemID,
		BidderID: bidderID,
		Amount:   amount,
		PlacedAt: placedAt.UTC(),
	}, nil
}

// MinimumBid is the lowest acceptable amount for the next bid on the item.
func MinimumBid(item *Item, increment float64) float64 {
	return item.HighestPrice() + increment
}
