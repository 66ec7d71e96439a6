package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyType namespaces Redis keys per concern.
type KeyType string

const (
	// ProviderToken caches short-lived realtime provider user tokens.
	ProviderToken KeyType = "meeting_provider_token"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ErrKeyNotExist is returned when a key is absent.
var ErrKeyNotExist = redis.Nil

// Service is a thin wrapper over the Redis client used for TTL-bound caching.
type Service struct {
	client *redis.Client
}

// NewService connects to Redis and verifies the connection.
func NewService(config *RedisConfig) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Service{client: client}, nil
}

// GenerateKey builds a namespaced Redis key.
func (s *Service) GenerateKey(keyType KeyType, identifier string) string {
	return fmt.Sprintf("%s:%s", string(keyType), identifier)
}

// GetValue gets a value from Redis by key.
func (s *Service) GetValue(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

// SetValue sets a value in Redis with TTL.
func (s *Service) SetValue(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// DelValue deletes a value from Redis by key.
func (s *Service) DelValue(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Close releases the underlying client.
func (s *Service) Close() error {
	return s.client.Close()
}
