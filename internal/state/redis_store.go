package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cable-orchestrator/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps mappings in Redis as JSON, one key per mapping.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisClient parses redisURL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisStore stores mappings under "<prefix>:<key>". A zero ttl keeps
// them forever.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "cable:mapping"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) getKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

func (s *RedisStore) LoadMapping(ctx context.Context, key string) (models.FieldMapping, error) {
	data, err := s.client.Get(ctx, s.getKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var m models.FieldMapping
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("decode mapping %s: %w", key, err)
	}
	return m, nil
}

func (s *RedisStore) SaveMapping(ctx context.Context, key string, m models.FieldMapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.getKey(key), data, s.ttl).Err()
}
