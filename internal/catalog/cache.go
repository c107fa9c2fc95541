package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"court-booking-service/internal/domain"
)

// RedisClient is the part of *redis.Client the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedStore serves academy lookups by id from Redis and falls back to the
// wrapped store. Writes go straight through and evict the cached academy.
// Redis failures are logged and never fail a request.
type CachedStore struct {
	Store
	rdb RedisClient
	ttl time.Duration
}

func NewCachedStore(store Store, rdb RedisClient, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, rdb: rdb, ttl: ttl}
}

func academyKey(id string) string {
	return fmt.Sprintf("academy:%s", id)
}

func (c *CachedStore) AcademyByID(ctx context.Context, id string) (*domain.Academy, error) {
	val, err := c.rdb.Get(ctx, academyKey(id)).Result()
	switch {
	case err == nil:
		var a domain.Academy
		if err := json.Unmarshal([]byte(val), &a); err == nil {
			return &a, nil
		}
		slog.WarnContext(ctx, "discarding unreadable cached academy", "academy_id", id)
	case !errors.Is(err, redis.Nil):
		slog.WarnContext(ctx, "academy cache read failed", "academy_id", id, "error", err)
	}

	a, err := c.Store.AcademyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return a, nil
	}
	if err := c.rdb.Set(ctx, academyKey(id), data, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "academy cache write failed", "academy_id", id, "error", err)
	}
	return a, nil
}

func (c *CachedStore) CreateAcademy(ctx context.Context, a *domain.Academy) error {
	if err := c.Store.CreateAcademy(ctx, a); err != nil {
		return err
	}
	c.evict(ctx, a.ID)
	return nil
}

func (c *CachedStore) SaveSports(ctx context.Context, academyID string, cfgs ...domain.SportConfig) error {
	if err := c.Store.SaveSports(ctx, academyID, cfgs...); err != nil {
		return err
	}
	c.evict(ctx, academyID)
	return nil
}

func (c *CachedStore) evict(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, academyKey(id)).Err(); err != nil {
		slog.WarnContext(ctx, "academy cache evict failed", "academy_id", id, "error", err)
	}
}
