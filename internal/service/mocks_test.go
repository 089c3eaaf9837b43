package service

import (
	"context"
	"time"

	"github.com/Abdurahmanit/GroupProject/auction-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Create(ctx context.Context, item *entity.Item) (string, error) {
	args := m.Called(ctx, item)
	return args.String(0), args.Error(1)
}

func (m *MockItemRepository) GetByID(ctx context.Context, itemID string) (*entity.Item, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Item), args.Error(1)
}

func (m *MockItemRepository) List(ctx context.Context, params repository.ListItemsParams) ([]entity.Item, int64, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Item), args.Get(1).(int64), args.Error(2)
}

func (m *MockItemRepository) Update(ctx context.Context, params repository.UpdateItemParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockItemRepository) UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockItemRepository) CommitBid(ctx context.Context, params repository.CommitBidParams) (*entity.Bid, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Bid), args.Error(1)
}

func (m *MockItemRepository) FindPendingTransitions(ctx context.Context, now time.Time) ([]entity.Item, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Item), args.Error(1)
}

func (m *MockItemRepository) CountBids(ctx context.Context, itemID string) (int64, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockItemRepository) Delete(ctx context.Context, itemID string) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) Save(ctx context.Context, conn *entity.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepository) Get(ctx context.Context, connectionID string) (*entity.Connection, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Connection), args.Error(1)
}

func (m *MockConnectionRepository) Touch(ctx context.Context, connectionID string) error {
	args := m.Called(ctx, connectionID)
	return args.Error(0)
}

func (m *MockConnectionRepository) MarkDisconnected(ctx context.Context, connectionID string) error {
	args := m.Called(ctx, connectionID)
	return args.Error(0)
}

func (m *MockConnectionRepository) SweepIdle(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	args := m.Called(ctx, now, ttl)
	return args.Int(0), args.Error(1)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) BroadcastBidUpdate(itemID string, currentPrice float64, bidderID string, at time.Time) {
	m.Called(itemID, currentPrice, bidderID, at)
}

func (m *MockBroadcaster) BroadcastAuctionStatus(itemID string, status entity.ItemStatus, at time.Time) {
	m.Called(itemID, status, at)
}

func (m *MockBroadcaster) SendError(userID, code, message string) {
	m.Called(userID, code, message)
}

func (m *MockBroadcaster) SendConnectionStatus(userID, connectionID string, status entity.ConnectionStatus) {
	m.Called(userID, connectionID, status)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, subject string, message interface{}) error {
	args := m.Called(ctx, subject, message)
	return args.Error(0)
}

func (m *MockMessagePublisher) PublishRaw(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}
