package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"pricing/internal/config"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only while it still holds value.
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)
}

// New picks the backend named in cfg. Unknown or empty backends use memory.
func New(cfg config.CacheConfig) Store {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "redis":
		return NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return NewMemoryStore()
	}
}

// Prefixed namespaces every key with prefix.
func Prefixed(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &prefixStore{next: s, prefix: prefix}
}

type prefixStore struct {
	next   Store
	prefix string
}

func (p *prefixStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.next.Get(ctx, p.prefix+key)
}

func (p *prefixStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.next.Set(ctx, p.prefix+key, value, ttl)
}

func (p *prefixStore) Delete(ctx context.Context, key string) error {
	return p.next.Delete(ctx, p.prefix+key)
}

func (p *prefixStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return p.next.SetNX(ctx, p.prefix+key, value, ttl)
}

func (p *prefixStore) CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error) {
	return p.next.CompareAndDelete(ctx, p.prefix+key, value)
}
