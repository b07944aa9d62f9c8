package repository

import (
	"context"
	"fmt"
	"time"

	"vitrina/internal/config"
	"vitrina/internal/models"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] = counter key
// ARGV[1] = floor (largest persisted sequence)
// ARGV[2] = ttl seconds
const luaNextSequence = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if current < floor then
  redis.call('SET', KEYS[1], floor)
end
local value = redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], ARGV[2])
return value
`

// RedisSequencer keeps one counter per day prefix. Keys expire after two days,
// so a new day always starts from the persisted floor.
type RedisSequencer struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	script *redis.Script
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisSequencer(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSequencer {
	if keyPrefix == "" {
		keyPrefix = "vitrina:booking_seq"
	}
	if ttl <= 0 {
		ttl = models.CounterTTLSeconds * time.Second
	}
	return &RedisSequencer{
		client: client,
		prefix: keyPrefix,
		ttl:    ttl,
		script: redis.NewScript(luaNextSequence),
	}
}

func (s *RedisSequencer) key(dayPrefix string) string {
	return fmt.Sprintf("%s:%s", s.prefix, dayPrefix)
}

func (s *RedisSequencer) Next(ctx context.Context, dayPrefix string, floor int64) (int64, error) {
	if s.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	value, err := s.script.Run(ctx, s.client, []string{s.key(dayPrefix)}, floor, int64(s.ttl.Seconds())).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment booking sequence: %w", err)
	}
	return value, nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
