package entity

import (
	"errors"
	"time"
	"unicode/utf8"
)

type ItemStatus string

const (
	StatusDraft     ItemStatus = "DRAFT"
	StatusUpcoming  ItemStatus = "UPCOMING"
	StatusOngoing   ItemStatus = "ONGOING"
	StatusEnded     ItemStatus = "ENDED"
	StatusCancelled ItemStatus = "CANCELLED"
)

const (
	minNameLength = 2
	maxNameLength = 200
)

// ValidName bounds the item name in characters, not bytes, so multibyte
// names are measured the way a user counts them.
func ValidName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= minNameLength && n <= maxNameLength
}

type Item struct {
	ID               string     `bson:"_id,omitempty"`
	Name             string     `bson:"name"`
	Description      string     `bson:"description,omitempty"`
	BasePrice        float64    `bson:"base_price"`
	Status           ItemStatus `bson:"status"`
	AuctionStartTime time.Time  `bson:"auction_start_time"`
	AuctionEndTime   time.Time  `bson:"auction_end_time"`
	CurrentBidID     string     `bson:"current_bid_id,omitempty"`
	CurrentPrice     float64    `bson:"current_price"`
	OwnerID          string     `bson:"owner_id"`
	CreatedAt        time.Time  `bson:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at"`
	Version          int64      `bson:"version"`
}

func NewItem(name, description string, basePrice float64, ownerID string, start, end time.Time) (*Item, error) {
	if !ValidName(name) {
		return nil, errors.New("item name must be between 2 and 200 characters")
	}
	if basePrice <= 0 {
		return nil, errors.New("base price must be positive")
	}
	if !end.After(start) {
		return nil, errors.New("auction end time must be after start time")
	}
	if ownerID == "" {
		return nil, errors.New("owner ID cannot be empty")
	}

	now := time.Now().UTC()
	return &Item{
		Name:             name,
		Description:      description,
		BasePrice:        basePrice,
		Status:           StatusDraft,
		AuctionStartTime: start,
		AuctionEndTime:   end,
		OwnerID:          ownerID,
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
	}, nil
}

// NextStatus computes the time-driven transition for an item in the given
// status with auction window [start, end). It returns false when no
// transition applies. Explicit actions (publish, cancel) are not time-driven
// and never come out of here.
func NextStatus(current ItemStatus, start, end, now time.Time) (ItemStatus, bool) {
	switch current {
	case StatusUpcoming:
		if !now.Before(start) {
			// Only the single forward edge: an item whose whole window
			// elapsed between ticks goes ONGOING now and ENDED next tick.
			return StatusOngoing, true
		}
	case StatusOngoing:
		if !now.Before(end) {
			return StatusEnded, true
		}
	}
	return "", false
}

// CanTransition reports whether the explicit edge from -> to is legal.
// Time-driven edges are also accepted so both writers share one rule set.
func CanTransition(from, to ItemStatus) bool {
	switch from {
	case StatusDraft:
		return to == StatusUpcoming || to == StatusCancelled
	case StatusUpcoming:
		return to == StatusOngoing || to == StatusCancelled
	case StatusOngoing:
		return to == StatusEnded
	default:
		// ENDED and CANCELLED are terminal.
		return false
	}
}

// IsModifiable reports whether the owner may still edit or delete the item.
func (i *Item) IsModifiable() bool {
	return i.Status == StatusDraft || i.Status == StatusUpcoming
}

// HighestPrice is the amount a competing bid has to beat: the current highest
// bid if one exists, the base price otherwise.
func (i *Item) HighestPrice() float64 {
	if i.CurrentBidID != "" {
		return i.CurrentPrice
	}
	return i.BasePrice
}

// WindowClosed reports whether the auction window has elapsed, regardless of
// the stored status. Stored status can lag real time between scheduler ticks.
func (i *Item) WindowClosed(now time.Time) bool {
	return !now.Before(i.AuctionEndTime)
}
