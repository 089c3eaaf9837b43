package entity

import (
	"errors"
	"fmt"
)

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrAuctionNotActive  = errors.New("auction is not active")
	ErrAuctionClosed     = errors.New("auction is closed")
	ErrSelfBidding       = errors.New("owner cannot bid on own item")
	ErrConcurrentBid     = errors.New("concurrent bid conflict: retries exhausted")
	ErrItemNotModifiable = errors.New("item can only be modified in DRAFT or UPCOMING status")
	ErrItemHasBids       = errors.New("item with bids cannot be deleted")
	ErrNotOwner          = errors.New("user is not the owner of the item")
	ErrInvalidItemData   = errors.New("invalid item data")
)

// ErrorCode maps a domain error to the wire-level code delivered to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrItemNotFound):
		return "ITEM_NOT_FOUND"
	case errors.Is(err, ErrAuctionNotActive):
		return "AUCTION_NOT_ACTIVE"
	case errors.Is(err, ErrAuctionClosed):
		return "AUCTION_CLOSED"
	case errors.Is(err, ErrSelfBidding):
		return "SELF_BIDDING_NOT_ALLOWED"
	case errors.Is(err, ErrConcurrentBid):
		return "CONCURRENT_BID_CONFLICT"
	}
	var tooLow *BidTooLowError
	if errors.As(err, &tooLow) {
		return "BID_TOO_LOW"
	}
	var invalid *InvalidTransitionError
	if errors.As(err, &invalid) {
		return "INVALID_STATE_TRANSITION"
	}
	return "BID_ERROR"
}

type InvalidTransitionError struct {
	From ItemStatus
	To   ItemStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

type BidTooLowError struct {
	Amount  float64
	Minimum float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid of %.2f is below the minimum of %.2f", e.Amount, e.Minimum)
}
