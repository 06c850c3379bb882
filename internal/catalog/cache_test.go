package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toppick-workers/internal/common/logger"
	"toppick-workers/internal/models"
)

// countingStore is an in-memory Store that counts candidate queries.
type countingStore struct {
	products    map[string]models.Product
	recentCalls int
	recentErr   error
}

func newCountingStore(products ...models.Product) *countingStore {
	s := &countingStore{products: make(map[string]models.Product)}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *countingStore) Recent(_ context.Context, q models.CandidateQuery) ([]models.Product, error) {
	s.recentCalls++
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	out := []models.Product{}
	for _, p := range s.products {
		if q.Brand == "" || p.Brand == q.Brand {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *countingStore) Get(_ context.Context, id string) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *countingStore) Insert(_ context.Context, p *models.Product) error {
	s.products[p.ID] = *p
	return nil
}

func (s *countingStore) Update(_ context.Context, p *models.Product) error {
	if _, ok := s.products[p.ID]; !ok {
		return ErrNotFound
	}
	s.products[p.ID] = *p
	return nil
}

func (s *countingStore) Delete(_ context.Context, id string) error {
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func newMiniredisCache(t *testing.T, next Store) (*CachedStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewCachedStore(next, rdb, time.Minute, logger.NewTestLogger(t)), mr
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "catalog:recent:all:20", CacheKey("", 0))
	assert.Equal(t, "catalog:recent:brand=acme:5", CacheKey("acme", 5))
	assert.Equal(t, "catalog:recent:brand=all:20", CacheKey("all", 20))
}

func TestCachedStore_RecentCacheAside(t *testing.T) {
	next := newCountingStore(
		models.Product{ID: "p1", Title: "One", Brand: "acme", Category: "course"},
	)
	cache, mr := newMiniredisCache(t, next)
	ctx := context.Background()
	q := models.CandidateQuery{Brand: "acme", Limit: 20}

	first, err := cache.Recent(ctx, q)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, next.recentCalls)
	assert.True(t, mr.Exists(CacheKey("acme", 20)))
	assert.Equal(t, time.Minute, mr.TTL(CacheKey("acme", 20)))

	second, err := cache.Recent(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.recentCalls, "second call should be served from redis")
}

func TestCachedStore_CorruptEntryFallsThrough(t *testing.T) {
	next := newCountingStore(models.Product{ID: "p1", Title: "One"})
	cache, mr := newMiniredisCache(t, next)

	require.NoError(t, mr.Set(CacheKey("", 20), "{not json"))

	products, err := cache.Recent(context.Background(), models.CandidateQuery{Limit: 20})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 1, next.recentCalls)
}

func TestCachedStore_StoreErrorNotCached(t *testing.T) {
	next := newCountingStore()
	next.recentErr = errors.New("catalog down")
	cache, mr := newMiniredisCache(t, next)

	_, err := cache.Recent(context.Background(), models.CandidateQuery{})
	require.Error(t, err)
	assert.False(t, mr.Exists(CacheKey("", 20)))
}

func TestCachedStore_WritesInvalidate(t *testing.T) {
	next := newCountingStore(
		models.Product{ID: "p1", Brand: "acme"},
		models.Product{ID: "p2", Brand: "other"},
	)
	cache, mr := newMiniredisCache(t, next)
	ctx := context.Background()

	warm := func() {
		for _, q := range []models.CandidateQuery{
			{Limit: 20}, {Limit: 5}, {Brand: "acme", Limit: 20}, {Brand: "other", Limit: 20},
		} {
			_, err := cache.Recent(ctx, q)
			require.NoError(t, err)
		}
	}

	t.Run("insert", func(t *testing.T) {
		warm()
		require.NoError(t, cache.Insert(ctx, &models.Product{ID: "p3", Brand: "acme"}))

		assert.False(t, mr.Exists(CacheKey("", 20)))
		assert.False(t, mr.Exists(CacheKey("", 5)))
		assert.False(t, mr.Exists(CacheKey("acme", 20)))
		assert.True(t, mr.Exists(CacheKey("other", 20)))
	})

	t.Run("update moving brand", func(t *testing.T) {
		warm()
		require.NoError(t, cache.Update(ctx, &models.Product{ID: "p2", Brand: "acme"}))

		assert.False(t, mr.Exists(CacheKey("other", 20)))
		assert.False(t, mr.Exists(CacheKey("acme", 20)))
		assert.False(t, mr.Exists(CacheKey("", 20)))
	})

	t.Run("delete", func(t *testing.T) {
		warm()
		require.NoError(t, cache.Delete(ctx, "p1"))

		assert.False(t, mr.Exists(CacheKey("acme", 20)))
		assert.False(t, mr.Exists(CacheKey("", 20)))
	})

	t.Run("failed write keeps cache", func(t *testing.T) {
		warm()
		assert.ErrorIs(t, cache.Delete(ctx, "missing"), ErrNotFound)
		assert.True(t, mr.Exists(CacheKey("", 20)))
	})
}

func TestCachedStore_RedisErrorsAreNotFatal(t *testing.T) {
	products := []models.Product{{ID: "p1", Title: "One"}}
	next := newCountingStore(products...)

	db, mock := redismock.NewClientMock()
	cache := NewCachedStore(next, db, time.Minute, logger.NewTestLogger(t))

	key := CacheKey("", 20)
	data, err := json.Marshal(products)
	require.NoError(t, err)

	mock.ExpectGet(key).SetErr(errors.New("READONLY"))
	mock.ExpectSet(key, string(data), time.Minute).SetErr(errors.New("READONLY"))

	got, err := cache.Recent(context.Background(), models.CandidateQuery{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, products, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedStore_InvalidateScanError(t *testing.T) {
	next := newCountingStore()

	db, mock := redismock.NewClientMock()
	cache := NewCachedStore(next, db, time.Minute, logger.NewTestLogger(t))

	mock.ExpectScan(0, "catalog:recent:all:*", 100).SetErr(errors.New("connection reset"))

	assert.NotPanics(t, func() { cache.Invalidate(context.Background(), "") })
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGlobEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "acme", want: "acme"},
		{in: "a*", want: `a\*`},
		{in: "what?", want: `what\?`},
		{in: "[beta]", want: `\[beta\]`},
		{in: `back\slash`, want: `back\\slash`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, globEscape(tt.in))
		})
	}
}

func TestCachedStore_InvalidateEscapesBrandPattern(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCachedStore(newCountingStore(), db, time.Minute, logger.NewTestLogger(t))

	mock.ExpectScan(0, "catalog:recent:all:*", 100).SetVal(nil, 0)
	mock.ExpectScan(0, `catalog:recent:brand=a\*:*`, 100).SetVal(nil, 0)

	cache.Invalidate(context.Background(), "a*")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedStore_InvalidateWildcardBrand(t *testing.T) {
	tests := []struct {
		brand   string
		kept    []string
		dropped []string
	}{
		{brand: "a*", kept: []string{"ab", "a"}, dropped: []string{"a*"}},
		{brand: "a?", kept: []string{"ab"}, dropped: []string{"a?"}},
		{brand: "[ab]", kept: []string{"a", "b"}, dropped: []string{"[ab]"}},
	}

	for _, tt := range tests {
		t.Run(tt.brand, func(t *testing.T) {
			cache, mr := newMiniredisCache(t, newCountingStore())
			for _, b := range append(append([]string{""}, tt.kept...), tt.dropped...) {
				mr.Set(CacheKey(b, 20), "[]")
			}

			cache.Invalidate(context.Background(), tt.brand)

			assert.False(t, mr.Exists(CacheKey("", 20)))
			for _, b := range tt.dropped {
				assert.False(t, mr.Exists(CacheKey(b, 20)), "brand %q should be invalidated", b)
			}
			for _, b := range tt.kept {
				assert.True(t, mr.Exists(CacheKey(b, 20)), "brand %q should survive", b)
			}
		})
	}
}
