package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Config struct {
	Enable   bool          `mapstructure:"enable"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"identity_ttl"`
}

func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// IdentityLookup resolves a public customer id to the private one.
type IdentityLookup interface {
	MapPublicToPrivate(ctx context.Context, publicID uuid.UUID) (uuid.UUID, error)
}

// IdentityCache is a read-through cache in front of an IdentityLookup. The
// mapping never changes once a customer exists, so only hits are cached and
// Redis failures fall through to the backing lookup.
type IdentityCache struct {
	rdb  redis.Cmdable
	next IdentityLookup
	ttl  time.Duration
	log  *zap.Logger
}

func NewIdentityCache(rdb redis.Cmdable, next IdentityLookup, ttl time.Duration, log *zap.Logger) *IdentityCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdentityCache{rdb: rdb, next: next, ttl: ttl, log: log}
}

func identityKey(publicID uuid.UUID) string { return "bz:pid:" + publicID.String() }

func (c *IdentityCache) MapPublicToPrivate(ctx context.Context, publicID uuid.UUID) (uuid.UUID, error) {
	key := identityKey(publicID)

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if id, perr := uuid.Parse(cached); perr == nil {
			return id, nil
		}
		c.log.Warn("identity cache: corrupt entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("identity cache: get failed", zap.Error(err))
	}

	id, err := c.next.MapPublicToPrivate(ctx, publicID)
	if err != nil {
		return uuid.Nil, err
	}
	if err := c.rdb.Set(ctx, key, id.String(), c.ttl).Err(); err != nil {
		c.log.Warn("identity cache: set failed", zap.Error(err))
	}
	return id, nil
}
