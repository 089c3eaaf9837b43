package service

import (
	"context"
	"errors"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/broadcast"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/repository"
)

// Scheduler advances auction windows. It is the system's sole recovery path
// for missed transitions: a failed tick is simply retried by the next one, so
// a stored status may lag its window by at most one interval.
type Scheduler struct {
	itemRepo      repository.ItemRepository
	connRepo      repository.ConnectionRepository
	broadcaster   broadcast.EventBroadcaster
	clk           clock.Clock
	tickInterval  time.Duration
	connectionTTL time.Duration
	log           logger.Logger
}

func NewScheduler(
	itemRepo repository.ItemRepository,
	connRepo repository.ConnectionRepository,
	broadcaster broadcast.EventBroadcaster,
	clk clock.Clock,
	tickInterval, connectionTTL time.Duration,
	log logger.Logger,
) *Scheduler {
	return &Scheduler{
		itemRepo:      itemRepo,
		connRepo:      connRepo,
		broadcaster:   broadcaster,
		clk:           clk,
		tickInterval:  tickInterval,
		connectionTTL: connectionTTL,
		log:           log,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Infof("Auction scheduler started, tick interval %s", s.tickInterval)
	ticker := s.clk.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Auction scheduler stopped")
			return
		case <-ticker.C():
			s.Tick(ctx, s.clk.Now())
		}
	}
}

// Tick runs one scheduling pass. Errors are contained per item; a failure on
// one candidate never aborts the rest of the batch.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	items, err := s.itemRepo.FindPendingTransitions(ctx, now)
	if err != nil {
		s.log.Errorf("Scheduler tick failed to query pending transitions: %v", err)
		return
	}

	for i := range items {
		s.advance(ctx, &items[i], now)
	}

	if s.connRepo != nil {
		swept, err := s.connRepo.SweepIdle(ctx, now, s.connectionTTL)
		if err != nil {
			s.log.Warnf("Connection sweep failed: %v", err)
		} else if swept > 0 {
			s.log.Infof("Marked %d idle connections as disconnected", swept)
		}
	}
}

func (s *Scheduler) advance(ctx context.Context, item *entity.Item, now time.Time) {
	next, ok := entity.NextStatus(item.Status, item.AuctionStartTime, item.AuctionEndTime, now)
	if !ok {
		return
	}

	err := s.itemRepo.UpdateStatus(ctx, repository.UpdateStatusParams{
		ItemID:  item.ID,
		Status:  next,
		Version: item.Version,
	})
	if err != nil {
		if errors.Is(err, repository.ErrOptimisticLock) {
			// Another actor already advanced the item; the next tick
			// reconciles whatever is left.
			s.log.Debugf("Skipping item %s, version moved under the scheduler", item.ID)
			return
		}
		s.log.Errorf("Failed to advance item %s from %s to %s: %v", item.ID, item.Status, next, err)
		return
	}

	s.log.Infof("Item %s advanced from %s to %s", item.ID, item.Status, next)
	s.broadcaster.BroadcastAuctionStatus(item.ID, next, now)
}
