package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/goto/sieve/core/view"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string `yaml:"addr" mapstructure:"addr" default:"localhost:6379"`
	Password string `yaml:"password" mapstructure:"password" default:""`
	DB       int    `yaml:"db" mapstructure:"db" default:"0"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix" default:"sieve"`
}

// ViewRepository stores each view configuration blob under <prefix>:<key>.
type ViewRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewClient connects to the configured server and checks it answers.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

func NewViewRepository(client redis.UniversalClient, prefix string) *ViewRepository {
	return &ViewRepository{client: client, prefix: prefix}
}

func (r *ViewRepository) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, view.ErrNotFound
		}
		return nil, fmt.Errorf("get view configuration %q: %w", key, err)
	}
	return blob, nil
}

// Put writes blob without expiry.
func (r *ViewRepository) Put(ctx context.Context, key string, blob []byte) error {
	if err := r.client.Set(ctx, r.redisKey(key), blob, 0).Err(); err != nil {
		return fmt.Errorf("put view configuration %q: %w", key, err)
	}
	return nil
}

func (r *ViewRepository) redisKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}
