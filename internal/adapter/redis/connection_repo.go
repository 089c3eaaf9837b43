package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/auction-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	connectionKeyPrefix = "ws_conn:"
	connectionIndexKey  = "ws_conn:index"
	// Disconnected records linger briefly for diagnostics, then expire.
	disconnectedRecordTTL = time.Hour
)

type connectionRepository struct {
	client *redis.Client
}

func NewConnectionRepository(client *redis.Client) repository.ConnectionRepository {
	return &connectionRepository{client: client}
}

func (r *connectionRepository) key(connectionID string) string {
	return connectionKeyPrefix + connectionID
}

func (r *connectionRepository) Save(ctx context.Context, conn *entity.Connection) error {
	if conn == nil || conn.ConnectionID == "" {
		return errors.New("cannot save nil connection or connection with empty ID")
	}

	data, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("failed to marshal connection %s: %w", conn.ConnectionID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(conn.ConnectionID), data, 0)
	pipe.SAdd(ctx, connectionIndexKey, conn.ConnectionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save connection %s to redis: %w", conn.ConnectionID, err)
	}
	return nil
}

func (r *connectionRepository) Get(ctx context.Context, connectionID string) (*entity.Connection, error) {
	val, err := r.client.Get(ctx, r.key(connectionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get connection %s from redis: %w", connectionID, err)
	}

	var conn entity.Connection
	if err := json.Unmarshal([]byte(val), &conn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connection %s: %w", connectionID, err)
	}
	return &conn, nil
}

func (r *connectionRepository) Touch(ctx context.Context, connectionID string) error {
	conn, err := r.Get(ctx, connectionID)
	if err != nil {
		return err
	}
	conn.Touch()
	return r.Save(ctx, conn)
}

func (r *connectionRepository) MarkDisconnected(ctx context.Context, connectionID string) error {
	conn, err := r.Get(ctx, connectionID)
	if err != nil {
		return err
	}
	conn.MarkDisconnected()

	data, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("failed to marshal connection %s: %w", connectionID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(connectionID), data, disconnectedRecordTTL)
	pipe.SRem(ctx, connectionIndexKey, connectionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark connection %s disconnected: %w", connectionID, err)
	}
	return nil
}

func (r *connectionRepository) SweepIdle(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	ids, err := r.client.SMembers(ctx, connectionIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list tracked connections: %w", err)
	}

	swept := 0
	for _, id := range ids {
		conn, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				r.client.SRem(ctx, connectionIndexKey, id)
				continue
			}
			return swept, err
		}
		if conn.IdleSince(now, ttl) {
			if err := r.MarkDisconnected(ctx, id); err != nil {
				return swept, err
			}
			swept++
		}
	}
	return swept, nil
}
