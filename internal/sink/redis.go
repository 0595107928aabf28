package sink

import (
	"context"
	"fmt"
	"time"

	"ddos-reassembler/internal/config"
	"ddos-reassembler/internal/logging"
	"ddos-reassembler/internal/reassembler"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisKeyPrefix = "summary:"

type redisAPI interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisSink caches summaries under summary:<key> and announces new keys on a channel
// when one is configured.
type RedisSink struct {
	client  redisAPI
	channel string
	ttl     time.Duration
}

func NewRedisSink(ctx context.Context, cfg config.RedisConfig) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	logging.GetLogger().WithFields(logrus.Fields{
		"addr":    cfg.Addr,
		"channel": cfg.Channel,
	}).Info("Connected to Redis")

	return &RedisSink{client: client, channel: cfg.Channel, ttl: cfg.TTL()}, nil
}

func (r *RedisSink) Write(ctx context.Context, s *reassembler.Summary) error {
	if err := ensureKey(s); err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, redisKeyPrefix+s.Key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.Key, err)
	}
	if r.channel != "" {
		if err := r.client.Publish(ctx, r.channel, s.Key).Err(); err != nil {
			return fmt.Errorf("redis publish %s: %w", r.channel, err)
		}
	}
	return nil
}

func (r *RedisSink) Close() error {
	return r.client.Close()
}
