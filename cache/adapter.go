package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/enemyai/cache/local"
	cacheredis "github.com/kasuganosora/enemyai/cache/redis"
)

// ErrNotFound is returned by the local cache when a key does not exist. Use
// IsNotFound to test errors from either backend.
var ErrNotFound = local.ErrNotFound

// IsNotFound reports whether err is a missing-key error from any backend.
func IsNotFound(err error) bool {
	return errors.Is(err, local.ErrNotFound) || errors.Is(err, cacheredis.ErrNotFound)
}

// Cache defines the KV / Hash / ZSet / List operations the AI telemetry
// needs.
type Cache interface {
	// KV
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Hash
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// ZSet
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZScore(ctx context.Context, key, member string) (float64, error)

	// List
	LPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error

	Close() error
}

// Message is a received pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub defines channel publish/subscribe operations.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
}

// CacheConfig holds configuration for both Redis and LocalCache.
type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// NewCache returns a Cache backed by Redis if RedisAddr is set,
// otherwise returns an in-process LocalCache.
func NewCache(cfg CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.NewCache(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return local.NewCache(local.Config{
		GCInterval: cfg.LocalGCInterval,
	})
}

// NewPubSub returns a PubSub backed by Redis if RedisAddr is set,
// otherwise returns an in-process LocalPubSub.
func NewPubSub(cfg CacheConfig) (PubSub, error) {
	if cfg.RedisAddr != "" {
		rps, err := cacheredis.NewPubSub(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return pubsubAdapter[cacheredis.Message]{sub: rps.Subscribe, pub: rps.Publish, conv: fromRedis}, nil
	}
	lps := local.NewPubSub(cfg.LocalPubSubBuf)
	return pubsubAdapter[local.Message]{sub: lps.Subscribe, pub: lps.Publish, conv: fromLocal}, nil
}

func fromLocal(m *local.Message) *Message      { return &Message{Channel: m.Channel, Payload: m.Payload} }
func fromRedis(m *cacheredis.Message) *Message { return &Message{Channel: m.Channel, Payload: m.Payload} }

// pubsubAdapter bridges a backend's message type to cache.Message.
type pubsubAdapter[M any] struct {
	sub  func(ctx context.Context, channels ...string) (<-chan *M, func(), error)
	pub  func(ctx context.Context, channel, message string) error
	conv func(*M) *Message
}

func (a pubsubAdapter[M]) Publish(ctx context.Context, channel, message string) error {
	return a.pub(ctx, channel, message)
}

func (a pubsubAdapter[M]) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	in, cancel, err := a.sub(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan *Message, cap(in))
	go func() {
		defer close(out)
		for msg := range in {
			out <- a.conv(msg)
		}
	}()
	return out, cancel, nil
}
