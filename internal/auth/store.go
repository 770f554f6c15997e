package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshStore keeps the one live refresh token id per user. Logging in again
// or refreshing replaces it, which revokes the previous token.
type RefreshStore struct {
	rdb *redis.Client
}

func NewRefreshStore(rdb *redis.Client) *RefreshStore {
	return &RefreshStore{rdb: rdb}
}

func refreshKey(userID int64) string {
	return fmt.Sprintf("refresh_token:%d", userID)
}

func (s *RefreshStore) Save(ctx context.Context, userID int64, tokenID string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, refreshKey(userID), tokenID, ttl).Err(); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *RefreshStore) Matches(ctx context.Context, userID int64, tokenID string) (bool, error) {
	stored, err := s.rdb.Get(ctx, refreshKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("load refresh token: %w", err)
	}
	return stored == tokenID, nil
}

func (s *RefreshStore) Revoke(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, refreshKey(userID)).Err(); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
