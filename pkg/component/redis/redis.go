// Package redis provides the Redis client component.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options holds Redis connection configuration.
type Options struct {
	// Addr is the host:port of the Redis server. Empty disables Redis.
	Addr string `json:"addr" mapstructure:"addr"`

	// Password is the Redis password.
	Password string `json:"password" mapstructure:"password"`

	// DB is the database index.
	DB int `json:"db" mapstructure:"db"`

	// DialTimeout bounds the initial connection attempt.
	DialTimeout time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		DialTimeout: 5 * time.Second,
	}
}

// Client wraps the go-redis client.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, opts *Options) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}

	return &Client{rdb: rdb}, nil
}

// Client returns the underlying go-redis client.
func (c *Client) Client() *redis.Client {
	return c.rdb
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
