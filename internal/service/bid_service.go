package service

import (
	"context"
	"errors"
	"fmt"

	"code.cloudfoundry.org/clock"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/broadcast"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/repository"
)

type BidService interface {
	PlaceBid(ctx context.Context, itemID, bidderID string, amount float64) (*entity.Bid, error)
}

type bidService struct {
	itemRepo    repository.ItemRepository
	broadcaster broadcast.EventBroadcaster
	clk         clock.Clock
	increment   float64
	maxAttempts int
	log         logger.Logger
}

func NewBidService(
	itemRepo repository.ItemRepository,
	broadcaster broadcast.EventBroadcaster,
	clk clock.Clock,
	minIncrement float64,
	maxAttempts int,
	log logger.Logger,
) BidService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &bidService{
		itemRepo:    itemRepo,
		broadcaster: broadcaster,
		clk:         clk,
		increment:   minIncrement,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// PlaceBid arbitrates one bid attempt. Preconditions are re-evaluated from a
// fresh read on every attempt, so a retry after a version conflict judges the
// bid against the state that beat it, not against stale intent.
func (s *bidService) PlaceBid(ctx context.Context, itemID, bidderID string, amount float64) (*entity.Bid, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		bid, err := s.tryPlaceBid(ctx, itemID, bidderID, amount)
		if err == nil {
			s.log.Infof("Bid of %.2f by user %s committed on item %s", amount, bidderID, itemID)
			s.broadcaster.BroadcastBidUpdate(itemID, bid.Amount, bid.BidderID, bid.PlacedAt)
			return bid, nil
		}

		if errors.Is(err, repository.ErrOptimisticLock) || errors.Is(err, repository.ErrUnavailable) {
			s.log.Debugf("Bid attempt %d/%d on item %s hit a transient conflict: %v", attempt, s.maxAttempts, itemID, err)
			lastErr = err
			continue
		}

		s.rejectBid(bidderID, itemID, err)
		return nil, err
	}

	if errors.Is(lastErr, repository.ErrUnavailable) {
		s.log.Errorf("Bid by user %s on item %s failed after %d attempts, store unavailable: %v", bidderID, itemID, s.maxAttempts, lastErr)
		s.broadcaster.SendError(bidderID, "STORE_UNAVAILABLE", "auction store is temporarily unavailable")
		return nil, fmt.Errorf("store unavailable after %d attempts: %w", s.maxAttempts, lastErr)
	}

	s.log.Warnf("Bid by user %s on item %s lost %d consecutive races", bidderID, itemID, s.maxAttempts)
	err := entity.ErrConcurrentBid
	s.rejectBid(bidderID, itemID, err)
	return nil, err
}

func (s *bidService) tryPlaceBid(ctx context.Context, itemID, bidderID string, amount float64) (*entity.Bid, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to read item %s: %w", itemID, err)
	}

	now := s.clk.Now()

	// Stored status lags real time between scheduler ticks; an elapsed
	// window rejects the bid even when the status still says ONGOING.
	if item.WindowClosed(now) {
		return nil, entity.ErrAuctionClosed
	}
	if item.Status != entity.StatusOngoing {
		return nil, entity.ErrAuctionNotActive
	}
	if item.OwnerID == bidderID {
		return nil, entity.ErrSelfBidding
	}
	if minimum := entity.MinimumBid(item, s.increment); amount < minimum {
		return nil, &entity.BidTooLowError{Amount: amount, Minimum: minimum}
	}

	bid, err := entity.NewBid(itemID, bidderID, amount, now)
	if err != nil {
		return nil, err
	}

	committed, err := s.itemRepo.CommitBid(ctx, repository.CommitBidParams{
		ItemID:  itemID,
		Version: item.Version,
		Bid:     bid,
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// rejectBid reports a failed attempt to the bidder alone. Rejections are
// never broadcast to the auction topic.
func (s *bidService) rejectBid(bidderID, itemID string, err error) {
	s.log.Debugf("Bid by user %s on item %s rejected: %v", bidderID, itemID, err)
	s.broadcaster.SendError(bidderID, entity.ErrorCode(err), err.Error())
}
