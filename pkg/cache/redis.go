package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores keyframe payloads in Redis under a common key prefix.
type Redis struct {
	client *redis.Client
	prefix string
}

type Options struct {
	Address     string
	Password    string
	DB          int
	Prefix      string
	DialTimeout time.Duration
}

type Option func(*Options)

func WithAddress(addr string) Option {
	return func(o *Options) {
		o.Address = addr
	}
}

func WithPassword(pass string) Option {
	return func(o *Options) {
		o.Password = pass
	}
}

func WithDB(db int) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithPrefix namespaces every key, so several deployments can share a server.
func WithPrefix(prefix string) Option {
	return func(o *Options) {
		o.Prefix = prefix
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.DialTimeout = d
	}
}

// New connects to Redis and pings it once.
func New(ctx context.Context, opts ...Option) (*Redis, error) {
	options := &Options{
		Address:     "localhost:6379",
		Prefix:      "salesrace:",
		DialTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(options)
	}

	client := redis.NewClient(&redis.Options{
		Addr:        options.Address,
		Password:    options.Password,
		DB:          options.DB,
		DialTimeout: options.DialTimeout,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", options.Address, err)
	}

	return &Redis{client: client, prefix: options.Prefix}, nil
}

func (c *Redis) key(k string) string {
	return c.prefix + k
}

func (c *Redis) Get(ctx context.Context, key string, dest any) error {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(val, dest)
}

func (c *Redis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), data, expiration).Err()
}

func (c *Redis) Close() error {
	return c.client.Close()
}
