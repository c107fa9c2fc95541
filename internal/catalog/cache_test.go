package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"court-booking-service/internal/domain"
)

type fakeRedis struct {
	data    map[string]string
	getErr  error
	deletes int
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: map[string]string{}} }

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	f.deletes++
	return redis.NewIntResult(int64(len(keys)), nil)
}

type countingStore struct {
	*MemoryStore
	byID int
}

func (c *countingStore) AcademyByID(ctx context.Context, id string) (*domain.Academy, error) {
	c.byID++
	return c.MemoryStore.AcademyByID(ctx, id)
}

func TestCachedStore_ReadThroughAndEvict(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{MemoryStore: NewMemoryStore()}
	rdb := newFakeRedis()
	store := NewCachedStore(backing, rdb, time.Minute)

	a := &domain.Academy{ID: "a1", Name: "Smash", Email: "s@x.test", City: "toronto"}
	require.NoError(t, store.CreateAcademy(ctx, a))

	first, err := store.AcademyByID(ctx, "a1")
	require.NoError(t, err)
	second, err := store.AcademyByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, 1, backing.byID)
	assert.Contains(t, rdb.data, "academy:a1")

	require.NoError(t, store.SaveSports(ctx, "a1", domain.SportConfig{SportName: "badminton", NumberOfCourts: 1, StartTime: "08:00", EndTime: "09:00"}))
	assert.NotContains(t, rdb.data, "academy:a1")

	third, err := store.AcademyByID(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, third.Sports, 1)
	assert.Equal(t, 2, backing.byID)
}

func TestCachedStore_RedisDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{MemoryStore: NewMemoryStore()}
	rdb := newFakeRedis()
	rdb.getErr = errors.New("connection refused")
	store := NewCachedStore(backing, rdb, time.Minute)

	require.NoError(t, store.CreateAcademy(ctx, &domain.Academy{ID: "a1", Email: "s@x.test"}))
	_, err := store.AcademyByID(ctx, "a1")
	require.NoError(t, err)

	_, err = store.AcademyByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
