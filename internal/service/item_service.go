package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.cloudfoundry.org/clock"
	natsadapter "github.com/Abdurahmanit/GroupProject/auction-service/internal/adapter/nats"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/broadcast"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/repository"
)

type CreateItemParams struct {
	Name        string
	Description string
	BasePrice   float64
	OwnerID     string
	StartTime   time.Time
	EndTime     time.Time
}

type UpdateItemParams struct {
	ItemID      string
	UserID      string
	Name        string
	Description string
	StartTime   time.Time
	EndTime     time.Time
}

type ItemService interface {
	CreateItem(ctx context.Context, params CreateItemParams) (*entity.Item, error)
	UpdateItem(ctx context.Context, params UpdateItemParams) (*entity.Item, error)
	PublishItem(ctx context.Context, itemID, userID string) (*entity.Item, error)
	CancelItem(ctx context.Context, itemID, userID string) (*entity.Item, error)
	GetItem(ctx context.Context, itemID string) (*entity.Item, error)
	ListItems(ctx context.Context, status entity.ItemStatus, page, pageSize int) ([]entity.Item, int64, error)
	DeleteItem(ctx context.Context, itemID, userID string) error
}

type itemService struct {
	itemRepo     repository.ItemRepository
	broadcaster  broadcast.EventBroadcaster
	msgPublisher natsadapter.MessagePublisher
	clk          clock.Clock
	log          logger.Logger
}

func NewItemService(
	itemRepo repository.ItemRepository,
	broadcaster broadcast.EventBroadcaster,
	msgPublisher natsadapter.MessagePublisher,
	clk clock.Clock,
	log logger.Logger,
) ItemService {
	return &itemService{
		itemRepo:     itemRepo,
		broadcaster:  broadcaster,
		msgPublisher: msgPublisher,
		clk:          clk,
		log:          log,
	}
}

func (s *itemService) CreateItem(ctx context.Context, params CreateItemParams) (*entity.Item, error) {
	s.log.Infof("Creating new item for user %s", params.OwnerID)

	item, err := entity.NewItem(params.Name, params.Description, params.BasePrice, params.OwnerID, params.StartTime, params.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidItemData, err)
	}

	itemID, err := s.itemRepo.Create(ctx, item)
	if err != nil {
		s.log.Errorf("Failed to save item for user %s: %v", params.OwnerID, err)
		return nil, fmt.Errorf("failed to save item: %w", err)
	}
	item.ID = itemID

	if err := s.msgPublisher.Publish(ctx, natsadapter.SubjectItemCreated, item); err != nil {
		s.log.Warnf("Failed to publish item created event for item %s: %v", itemID, err)
	}

	s.log.Infof("Item %s created in DRAFT for user %s", itemID, params.OwnerID)
	return item, nil
}

func (s *itemService) UpdateItem(ctx context.Context, params UpdateItemParams) (*entity.Item, error) {
	item, err := s.getOwnedItem(ctx, params.ItemID, params.UserID)
	if err != nil {
		return nil, err
	}
	if !item.IsModifiable() {
		return nil, entity.ErrItemNotModifiable
	}
	if !entity.ValidName(params.Name) {
		return nil, fmt.Errorf("%w: item name must be between 2 and 200 characters", entity.ErrInvalidItemData)
	}
	if !params.EndTime.After(params.StartTime) {
		return nil, fmt.Errorf("%w: auction end time must be after start time", entity.ErrInvalidItemData)
	}

	err = s.itemRepo.Update(ctx, repository.UpdateItemParams{
		ItemID:      item.ID,
		Name:        params.Name,
		Description: params.Description,
		StartTime:   params.StartTime,
		EndTime:     params.EndTime,
		Version:     item.Version,
	})
	if err != nil {
		s.log.Errorf("Failed to update item %s: %v", item.ID, err)
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	item.Name = params.Name
	item.Description = params.Description
	item.AuctionStartTime = params.StartTime
	item.AuctionEndTime = params.EndTime
	item.Version++
	return item, nil
}

// PublishItem moves a DRAFT item to UPCOMING. This is the only way an item
// leaves DRAFT; the scheduler never touches drafts.
func (s *itemService) PublishItem(ctx context.Context, itemID, userID string) (*entity.Item, error) {
	return s.transition(ctx, itemID, userID, entity.StatusUpcoming)
}

// CancelItem cancels an auction that has not started. ONGOING and terminal
// items cannot be cancelled.
func (s *itemService) CancelItem(ctx context.Context, itemID, userID string) (*entity.Item, error) {
	return s.transition(ctx, itemID, userID, entity.StatusCancelled)
}

func (s *itemService) transition(ctx context.Context, itemID, userID string, to entity.ItemStatus) (*entity.Item, error) {
	item, err := s.getOwnedItem(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(item.Status, to) {
		return nil, &entity.InvalidTransitionError{From: item.Status, To: to}
	}

	err = s.itemRepo.UpdateStatus(ctx, repository.UpdateStatusParams{
		ItemID:  itemID,
		Status:  to,
		Version: item.Version,
	})
	if err != nil {
		s.log.Errorf("Failed to move item %s to %s: %v", itemID, to, err)
		return nil, fmt.Errorf("failed to update item status: %w", err)
	}
	item.Status = to
	item.Version++

	s.broadcaster.BroadcastAuctionStatus(itemID, to, s.clk.Now())
	s.log.Infof("Item %s moved to %s by user %s", itemID, to, userID)
	return item, nil
}

func (s *itemService) GetItem(ctx context.Context, itemID string) (*entity.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to retrieve item %s: %w", itemID, err)
	}
	return item, nil
}

func (s *itemService) ListItems(ctx context.Context, status entity.ItemStatus, page, pageSize int) ([]entity.Item, int64, error) {
	items, total, err := s.itemRepo.List(ctx, repository.ListItemsParams{
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	return items, total, nil
}

// DeleteItem removes an item that never went to auction. Items with bids are
// kept for the bid history.
func (s *itemService) DeleteItem(ctx context.Context, itemID, userID string) error {
	item, err := s.getOwnedItem(ctx, itemID, userID)
	if err != nil {
		return err
	}
	if !item.IsModifiable() {
		return entity.ErrItemNotModifiable
	}

	bidCount, err := s.itemRepo.CountBids(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to count bids for item %s: %w", itemID, err)
	}
	if bidCount > 0 {
		return entity.ErrItemHasBids
	}

	if err := s.itemRepo.Delete(ctx, itemID); err != nil {
		s.log.Errorf("Failed to delete item %s: %v", itemID, err)
		return fmt.Errorf("failed to delete item: %w", err)
	}
	s.log.Infof("Item %s deleted by user %s", itemID, userID)
	return nil
}

func (s *itemService) getOwnedItem(ctx context.Context, itemID, userID string) (*entity.Item, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != userID {
		s.log.Warnf("User %s attempted to modify item %s owned by %s", userID, itemID, item.OwnerID)
		return nil, entity.ErrNotOwner
	}
	return item, nil
}
