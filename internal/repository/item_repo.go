package repository

import (
	"context"
	"time"

	"github.com/Abdurahmanit/GroupProject/auction-service/internal/domain/entity"
)

type UpdateItemParams struct {
	ItemID      string
	Name        string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Version     int64
}

type UpdateStatusParams struct {
	ItemID  string
	Status  entity.ItemStatus
	Version int64
}

// CommitBidParams carries one atomic bid settlement: insert the bid, point
// the item at it and bump the version, all conditioned on Version still
// matching the stored one.
type CommitBidParams struct {
	ItemID  string
	Version int64
	Bid     *entity.Bid
}

type ListItemsParams struct {
	Status   entity.ItemStatus
	OwnerID  string
	Page     int
	PageSize int
}

type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) (string, error)
	GetByID(ctx context.Context, itemID string) (*entity.Item, error)
	List(ctx context.Context, params ListItemsParams) ([]entity.Item, int64, error)
	Update(ctx context.Context, params UpdateItemParams) error
	UpdateStatus(ctx context.Context, params UpdateStatusParams) error
	CommitBid(ctx context.Context, params CommitBidParams) (*entity.Bid, error)
	// FindPendingTransitions returns items whose stored status is UPCOMING or
	// ONGOING and whose window indicates a transition is due at now.
	FindPendingTransitions(ctx context.Context, now time.Time) ([]entity.Item, error)
	CountBids(ctx context.Context, itemID string) (int64, error)
	Delete(ctx context.Context, itemID string) error
}

type ConnectionRepository interface {
	Save(ctx context.Context, conn *entity.Connection) error
	Get(ctx context.Context, connectionID string) (*entity.Connection, error)
	Touch(ctx context.Context, connectionID string) error
	MarkDisconnected(ctx context.Context, connectionID string) error
	// SweepIdle marks connections idle longer than ttl as disconnected and
	// returns how many were swept.
	SweepIdle(ctx context.Context, now time.Time, ttl time.Duration) (int, error)
}
