package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testIncrement   = 5.0
	testMaxAttempts = 3
)

func auctionItem(start, end time.Time) *entity.Item {
	return &entity.Item{
		ID:               "item-1",
		Name:             "Antique clock",
		BasePrice:        100,
		Status:           entity.StatusOngoing,
		AuctionStartTime: start,
		AuctionEndTime:   end,
		OwnerID:          "owner-1",
		Version:          4,
	}
}

func newBidServiceForTest(repo *MockItemRepository, bc *MockBroadcaster, now time.Time) BidService {
	return NewBidService(repo, bc, fakeclock.NewFakeClock(now), testIncrement, testMaxAttempts, logger.NewNop())
}

func TestPlaceBid_ItemNotFound(t *testing.T) {
	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound)
	bc.On("SendError", "bidder-1", "ITEM_NOT_FOUND", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, time.Now())
	_, err := svc.PlaceBid(context.Background(), "missing", "bidder-1", 105)

	assert.ErrorIs(t, err, entity.ErrItemNotFound)
	bc.AssertExpectations(t)
}

func TestPlaceBid_BeforeStartIsNotActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := auctionItem(now.Add(time.Hour), now.Add(2*time.Hour))
	item.Status = entity.StatusUpcoming

	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	bc.On("SendError", "bidder-1", "AUCTION_NOT_ACTIVE", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, now)
	_, err := svc.PlaceBid(context.Background(), "item-1", "bidder-1", 100)

	assert.ErrorIs(t, err, entity.ErrAuctionNotActive)
	repo.AssertNotCalled(t, "CommitBid", mock.Anything, mock.Anything)
}

func TestPlaceBid_ClosedWindowBeatsStaleStatus(t *testing.T) {
	// Stored status still says ONGOING but the end time has elapsed: the
	// scheduler simply has not caught up yet.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := auctionItem(now.Add(-2*time.Hour), now.Add(-time.Minute))

	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	bc.On("SendError", "bidder-1", "AUCTION_CLOSED", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, now)
	_, err := svc.PlaceBid(context.Background(), "item-1", "bidder-1", 500)

	assert.ErrorIs(t, err, entity.ErrAuctionClosed)
	repo.AssertNotCalled(t, "CommitBid", mock.Anything, mock.Anything)
}

func TestPlaceBid_BidAtExactEndTimeIsClosed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := auctionItem(now.Add(-time.Hour), now)

	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	bc.On("SendError", "bidder-1", "AUCTION_CLOSED", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, now)
	_, err := svc.PlaceBid(context.Background(), "item-1", "bidder-1", 500)

	assert.ErrorIs(t, err, entity.ErrAuctionClosed)
}

func TestPlaceBid_OwnerCannotBid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := auctionItem(now.Add(-time.Minute), now.Add(time.Hour))

	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	bc.On("SendError", "owner-1", "SELF_BIDDING_NOT_ALLOWED", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, now)
	_, err := svc.PlaceBid(context.Background(), "item-1", "owner-1", 200)

	assert.ErrorIs(t, err, entity.ErrSelfBidding)
}

func TestPlaceBid_BelowMinimumFromBasePrice(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := auctionItem(now.Add(-time.Second), now.Add(time.Hour))

	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	bc.On("SendError", "bidder-1", "BID_TOO_LOW", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, now)
	_, err := svc.PlaceBid(context.Background(), "item-1", "bidder-1", 104)

	var tooLow *entity.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.Equal(t, 105.0, tooLow.Minimum)
}

func TestPlaceBid_AtExactMinimumIsAccepted(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC)
	item := auctionItem(now.Add(-time.Second), now.Add(time.Hour))

	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	repo.On("CommitBid", mock.Anything, mock.MatchedBy(func(p repository.CommitBidParams) bool {
		return p.ItemID == "item-1" && p.Version == 4 && p.Bid.Amount == 105
	})).Return(&entity.Bid{ID: "bid-1", ItemID: "item-1", BidderID: "bidder-1", Amount: 105, PlacedAt: now, Sequence: 5}, nil)
	bc.On("BroadcastBidUpdate", "item-1", 105.0, "bidder-1", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, now)
	bid, err := svc.PlaceBid(context.Background(), "item-1", "bidder-1", 105)

	require.NoError(t, err)
	assert.Equal(t, "bid-1", bid.ID)
	assert.Equal(t, int64(5), bid.Sequence)
	repo.AssertExpectations(t)
	bc.AssertExpectations(t)
}

func TestPlaceBid_SecondBidAtSameAmountIsTooLow(t *testing.T) {
	// A concurrent 105 already committed; a second 105 is judged against the
	// new 110 floor.
	now := time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC)
	item := auctionItem(now.Add(-time.Second), now.Add(time.Hour))
	item.CurrentBidID = "bid-1"
	item.CurrentPrice = 105
	item.Version = 5

	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	bc.On("SendError", "bidder-2", "BID_TOO_LOW", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, now)
	_, err := svc.PlaceBid(context.Background(), "item-1", "bidder-2", 105)

	var tooLow *entity.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.Equal(t, 110.0, tooLow.Minimum)
}

func TestPlaceBid_RetriesAfterVersionConflict(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stale := auctionItem(now.Add(-time.Minute), now.Add(time.Hour))
	fresh := auctionItem(now.Add(-time.Minute), now.Add(time.Hour))
	fresh.CurrentBidID = "bid-1"
	fresh.CurrentPrice = 110
	fresh.Version = 5

	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "item-1").Return(stale, nil).Once()
	repo.On("GetByID", mock.Anything, "item-1").Return(fresh, nil).Once()
	repo.On("CommitBid", mock.Anything, mock.MatchedBy(func(p repository.CommitBidParams) bool {
		return p.Version == 4
	})).Return(nil, repository.ErrOptimisticLock).Once()
	repo.On("CommitBid", mock.Anything, mock.MatchedBy(func(p repository.CommitBidParams) bool {
		return p.Version == 5
	})).Return(&entity.Bid{ID: "bid-2", ItemID: "item-1", BidderID: "bidder-1", Amount: 120, PlacedAt: now, Sequence: 6}, nil).Once()
	bc.On("BroadcastBidUpdate", "item-1", 120.0, "bidder-1", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, now)
	bid, err := svc.PlaceBid(context.Background(), "item-1", "bidder-1", 120)

	require.NoError(t, err)
	assert.Equal(t, "bid-2", bid.ID)
	repo.AssertExpectations(t)
}

func TestPlaceBid_ConflictRetriesExhausted(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := auctionItem(now.Add(-time.Minute), now.Add(time.Hour))

	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil).Times(testMaxAttempts)
	repo.On("CommitBid", mock.Anything, mock.Anything).Return(nil, repository.ErrOptimisticLock).Times(testMaxAttempts)
	bc.On("SendError", "bidder-1", "CONCURRENT_BID_CONFLICT", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, now)
	_, err := svc.PlaceBid(context.Background(), "item-1", "bidder-1", 200)

	assert.ErrorIs(t, err, entity.ErrConcurrentBid)
	repo.AssertExpectations(t)
	bc.AssertExpectations(t)
}

func TestPlaceBid_StoreUnavailableSurfacedAfterRetries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := auctionItem(now.Add(-time.Minute), now.Add(time.Hour))

	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil).Times(testMaxAttempts)
	repo.On("CommitBid", mock.Anything, mock.Anything).Return(nil, repository.ErrUnavailable).Times(testMaxAttempts)
	bc.On("SendError", "bidder-1", "STORE_UNAVAILABLE", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, now)
	_, err := svc.PlaceBid(context.Background(), "item-1", "bidder-1", 200)

	assert.ErrorIs(t, err, repository.ErrUnavailable)
	bc.AssertExpectations(t)
}

func TestPlaceBid_RejectionIsNeverBroadcastToTopic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := auctionItem(now.Add(-time.Minute), now.Add(time.Hour))

	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
	bc.On("SendError", "bidder-1", "BID_TOO_LOW", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, now)
	_, err := svc.PlaceBid(context.Background(), "item-1", "bidder-1", 10)

	require.Error(t, err)
	bc.AssertNotCalled(t, "BroadcastBidUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceBid_PreconditionOrderNotFoundBeforeClosed(t *testing.T) {
	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound)
	bc.On("SendError", mock.Anything, "ITEM_NOT_FOUND", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, time.Now())
	_, err := svc.PlaceBid(context.Background(), "missing", "owner-1", -5)

	// Existence is checked before any other precondition.
	assert.ErrorIs(t, err, entity.ErrItemNotFound)
}

func TestPlaceBid_TransientReadErrorRetries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := auctionItem(now.Add(-time.Minute), now.Add(time.Hour))

	repo := new(MockItemRepository)
	bc := new(MockBroadcaster)
	repo.On("GetByID", mock.Anything, "item-1").Return(nil, fmt.Errorf("%w: dial tcp: connection refused", repository.ErrUnavailable)).Once()
	repo.On("GetByID", mock.Anything, "item-1").Return(item, nil).Once()
	repo.On("CommitBid", mock.Anything, mock.Anything).
		Return(&entity.Bid{ID: "bid-9", ItemID: "item-1", BidderID: "bidder-1", Amount: 105, PlacedAt: now, Sequence: 5}, nil).Once()
	bc.On("BroadcastBidUpdate", "item-1", 105.0, "bidder-1", mock.Anything).Return()

	svc := newBidServiceForTest(repo, bc, now)
	bid, err := svc.PlaceBid(context.Background(), "item-1", "bidder-1", 105)

	require.NoError(t, err)
	assert.Equal(t, "bid-9", bid.ID)
}
