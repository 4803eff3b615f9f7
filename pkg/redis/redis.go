// Package redispkg builds Redis clients from REDIS_URL-style strings and adapts
// them to the small interface the session store depends on.
package redispkg

import (
	"context"
	"crypto/tls"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
)

const defaultAddr = "localhost:6379"

// RedisClient is a small interface used by Redis-backed stores. Keep it minimal for testability.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// ParseRedisURL accepts either a plain `host:port` or a `redis://`/`rediss://`
// URL and returns the address, password, database number and whether TLS is required.
func ParseRedisURL(raw string) (addr, password string, db int, useTLS bool) {
	if raw == "" {
		return defaultAddr, "", 0, false
	}
	if !strings.HasPrefix(raw, "redis://") && !strings.HasPrefix(raw, "rediss://") {
		return raw, "", 0, false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw, "", 0, false
	}
	addr = u.Host
	useTLS = u.Scheme == "rediss"
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			password = pw
		}
	}
	if p := strings.Trim(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	return addr, password, db, useTLS
}

// NewClient builds a redis client from a REDIS_URL-like string. It disables
// maintnotifications to avoid handshake attempts on servers that don't
// implement the subcommand.
func NewClient(raw string) *redis.Client {
	addr, password, db, useTLS := ParseRedisURL(raw)
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	if useTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

// Client is a thin adapter around *redis.Client that implements RedisClient.
type Client struct {
	Raw *redis.Client
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.Raw.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	return c.Raw.Set(ctx, key, val, ttl).Err()
}

func (c *Client) Del(ctx context.Context, key string) error {
	return c.Raw.Del(ctx, key).Err()
}

func (c *Client) Close() error {
	return c.Raw.Close()
}

// NewAdapter creates the adapter wrapper for a *redis.Client.
func NewAdapter(rawClient *redis.Client) *Client {
	return &Client{Raw: rawClient}
}

var _ RedisClient = (*Client)(nil)
