package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	auctionTopicPrefix = "auction:"
	userChannelPrefix  = "user:"
)

// AuctionTopic is the pub/sub channel all subscribers of one auction share.
func AuctionTopic(itemID string) string {
	return auctionTopicPrefix + itemID
}

// UserChannel is the private pub/sub channel for one user.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// Transport carries broadcast payloads over Redis pub/sub. Publishing to a
// channel nobody subscribes to is not an error; delivery is best effort.
type Transport struct {
	client *redis.Client
}

func NewTransport(client *redis.Client) *Transport {
	return &Transport{client: client}
}

func (t *Transport) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := t.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

func (t *Transport) PublishToUser(ctx context.Context, userID string, payload []byte) error {
	return t.Publish(ctx, UserChannel(userID), payload)
}

// Subscribe opens a pub/sub subscription on the given channels. The caller
// owns the returned subscription and must close it.
func (t *Transport) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return t.client.Subscribe(ctx, channels...)
}
