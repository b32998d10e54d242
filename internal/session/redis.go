package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/msk-triage-server/internal/interview"
)

const (
	keyPrefix   = "msk:session:"
	recentKey   = "msk:sessions:recent"
	defaultTTL  = 24 * time.Hour
	recentLimit = 500
)

// RedisStore implements Store on Redis. It is used as the live-session
// cache in front of a durable store: in-flight interviews are hot and
// expire on their own once abandoned.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis from a URL (redis://host:port/db). A
// non-positive ttl falls back to the default.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// Save stores the session with the configured TTL and records it in the
// recency index.
func (s *RedisStore) Save(ctx context.Context, session interview.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+session.ID, payload, s.ttl)
	pipe.ZAdd(ctx, recentKey, redis.Z{
		Score:  float64(session.UpdatedAt.UnixNano()),
		Member: session.ID,
	})
	pipe.ZRemRangeByRank(ctx, recentKey, 0, -recentLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get returns the stored session, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (interview.Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return interview.Session{}, ErrNotFound
	}
	if err != nil {
		return interview.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var session interview.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return interview.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

// List returns recent session IDs, newest first.
func (s *RedisStore) List(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := s.client.ZRevRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Delete removes a session and its recency entry.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keyPrefix+id)
	pipe.ZRem(ctx, recentKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
