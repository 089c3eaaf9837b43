package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/auction-service/internal/app/config"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	itemCollectionName = "items"
	bidCollectionName  = "bids"
)

type itemRepository struct {
	db    *mongo.Database
	items *mongo.Collection
	bids  *mongo.Collection
}

func NewItemRepository(client *mongo.Client, cfg config.MongoDBConfig) repository.ItemRepository {
	database := client.Database(cfg.Database)
	return &itemRepository{
		db:    database,
		items: database.Collection(itemCollectionName),
		bids:  database.Collection(bidCollectionName),
	}
}

func (r *itemRepository) Create(ctx context.Context, item *entity.Item) (string, error) {
	item.ID = primitive.NewObjectID().Hex()
	if _, err := r.items.InsertOne(ctx, item); err != nil {
		return "", fmt.Errorf("failed to create item: %w", translate(err))
	}
	return item.ID, nil
}

func (r *itemRepository) GetByID(ctx context.Context, itemID string) (*entity.Item, error) {
	var item entity.Item
	err := r.items.FindOne(ctx, bson.M{"_id": itemID}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item by ID %s: %w", itemID, translate(err))
	}
	return &item, nil
}

func (r *itemRepository) List(ctx context.Context, params repository.ListItemsParams) ([]entity.Item, int64, error) {
	filter := bson.M{}
	if params.Status != "" {
		filter["status"] = params.Status
	}
	if params.OwnerID != "" {
		filter["owner_id"] = params.OwnerID
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "auction_start_time", Value: 1}})
	if params.PageSize > 0 {
		if params.Page <= 0 {
			params.Page = 1
		}
		findOptions.SetSkip(int64((params.Page - 1) * params.PageSize))
		findOptions.SetLimit(int64(params.PageSize))
	}

	cursor, err := r.items.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", translate(err))
	}
	defer cursor.Close(ctx)

	var items []entity.Item
	if err = cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode listed items: %w", err)
	}

	totalCount, err := r.items.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", translate(err))
	}

	return items, totalCount, nil
}

func (r *itemRepository) Update(ctx context.Context, params repository.UpdateItemParams) error {
	filter := bson.M{
		"_id":     params.ItemID,
		"version": params.Version,
	}
	update := bson.M{
		"$set": bson.M{
			"name":               params.Name,
			"description":        params.Description,
			"auction_start_time": params.StartTime,
			"auction_end_time":   params.EndTime,
			"updated_at":         time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.items.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update item %s: %w", params.ItemID, translate(err))
	}
	if result.MatchedCount == 0 {
		return r.diagnoseConflict(ctx, params.ItemID, params.Version)
	}
	return nil
}

func (r *itemRepository) UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) error {
	filter := bson.M{
		"_id":     params.ItemID,
		"version": params.Version,
	}
	update := bson.M{
		"$set": bson.M{
			"status":     params.Status,
			"updated_at": time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.items.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update status for item %s: %w", params.ItemID, translate(err))
	}
	if result.MatchedCount == 0 {
		return r.diagnoseConflict(ctx, params.ItemID, params.Version)
	}
	return nil
}

// CommitBid settles one bid against the item's version. The bid document is
// inserted first and the version-checked item update is the linearization
// point: the item never advertises a current_bid_id without a stored bid
// behind it, and two bids can never commit against the same version. A bid
// whose item write loses the race is compensated away.
func (r *itemRepository) CommitBid(ctx context.Context, params repository.CommitBidParams) (*entity.Bid, error) {
	bid := *params.Bid
	bid.ID = primitive.NewObjectID().Hex()
	bid.Sequence = params.Version + 1

	if _, err := r.bids.InsertOne(ctx, bid); err != nil {
		return nil, fmt.Errorf("failed to insert bid for item %s: %w", params.ItemID, translate(err))
	}

	filter := bson.M{
		"_id":     params.ItemID,
		"version": params.Version,
	}
	update := bson.M{
		"$set": bson.M{
			"current_bid_id": bid.ID,
			"current_price":  bid.Amount,
			"updated_at":     time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.items.UpdateOne(ctx, filter, update)
	if err != nil {
		// Outcome unknown: the bid document stays. If the write did land,
		// the item already points at it.
		return nil, fmt.Errorf("failed to commit bid on item %s: %w", params.ItemID, translate(err))
	}
	if result.MatchedCount == 0 {
		if _, delErr := r.bids.DeleteOne(ctx, bson.M{"_id": bid.ID}); delErr != nil {
			return nil, fmt.Errorf("failed to remove losing bid %s: %w", bid.ID, translate(delErr))
		}
		return nil, r.diagnoseConflict(ctx, params.ItemID, params.Version)
	}
	return &bid, nil
}

func (r *itemRepository) FindPendingTransitions(ctx context.Context, now time.Time) ([]entity.Item, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"status": entity.StatusUpcoming, "auction_start_time": bson.M{"$lte": now}},
			bson.M{"status": entity.StatusOngoing, "auction_end_time": bson.M{"$lte": now}},
		},
	}

	cursor, err := r.items.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending transitions: %w", translate(err))
	}
	defer cursor.Close(ctx)

	var items []entity.Item
	if err = cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode pending transitions: %w", err)
	}
	return items, nil
}

func (r *itemRepository) CountBids(ctx context.Context, itemID string) (int64, error) {
	count, err := r.bids.CountDocuments(ctx, bson.M{"item_id": itemID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bids for item %s: %w", itemID, translate(err))
	}
	return count, nil
}

func (r *itemRepository) Delete(ctx context.Context, itemID string) error {
	result, err := r.items.DeleteOne(ctx, bson.M{"_id": itemID})
	if err != nil {
		return fmt.Errorf("failed to delete item %s: %w", itemID, translate(err))
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// diagnoseConflict tells a missing document apart from a stale version after
// a conditional write matched nothing.
func (r *itemRepository) diagnoseConflict(ctx context.Context, itemID string, expectedVersion int64) error {
	var existing entity.Item
	err := r.items.FindOne(ctx, bson.M{"_id": itemID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if err == nil && existing.Version != expectedVersion {
		return repository.ErrOptimisticLock
	}
	return repository.ErrUpdateFailed
}

// translate folds driver-level connectivity failures into the transient
// ErrUnavailable so callers can apply their retry budget.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return err
}
