package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benvon/excuse-deck/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces decision logs in Redis
const DefaultKeyPrefix = "event-decisions"

// RedisStore keeps each owner's log as a Redis list of JSON entries
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store on client. A positive ttl expires idle logs.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: DefaultKeyPrefix, ttl: ttl}
}

// NewRedisStoreFromURL parses a redis:// URL and pings the server
func NewRedisStoreFromURL(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStore(client, ttl), nil
}

// Key returns the list key for owner
func (s *RedisStore) Key(owner string) string {
	return s.prefix + ":" + owner
}

// Append RPUSHes d and refreshes the ttl
func (s *RedisStore) Append(ctx context.Context, owner string, d models.EventDecision) error {
	data, err := encodeEntry(d)
	if err != nil {
		return err
	}

	key := s.Key(owner)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append decision: %w", err)
	}
	return nil
}

// List returns the whole list in push order
func (s *RedisStore) List(ctx context.Context, owner string) ([]models.EventDecision, error) {
	raw, err := s.client.LRange(ctx, s.Key(owner), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}

	return decodeEntries(raw)
}

// encodeEntry is the list element stored for one decision
func encodeEntry(d models.EventDecision) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal decision: %w", err)
	}
	return data, nil
}

func decodeEntries(raw []string) ([]models.EventDecision, error) {
	out := make([]models.EventDecision, 0, len(raw))
	for i, entry := range raw {
		var d models.EventDecision
		if err := json.Unmarshal([]byte(entry), &d); err != nil {
			return nil, fmt.Errorf("failed to decode decision %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Clear deletes the list
func (s *RedisStore) Clear(ctx context.Context, owner string) error {
	if err := s.client.Del(ctx, s.Key(owner)).Err(); err != nil {
		return fmt.Errorf("failed to clear decisions: %w", err)
	}
	return nil
}

// Client exposes the underlying client so the rate limiter can share it
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
