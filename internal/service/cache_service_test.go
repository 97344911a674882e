package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/attendx-api/pkg/errors"
)

type memoryCache struct {
	items     map[string][]byte
	getErr    error
	setErr    error
	deleteErr error
	ttls      map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	removed := 0
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
			removed++
		}
	}
	return removed, nil
}

func TestCacheServiceRoundTripAndInvalidate(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	ctx := context.Background()

	var dest map[string]int
	assert.False(t, svc.Get(ctx, "attendance:STUDENT:s1", &dest))

	svc.Set(ctx, "attendance:STUDENT:s1", map[string]int{"present": 3}, 0)
	assert.Equal(t, time.Minute, repo.ttls["attendance:STUDENT:s1"])
	require.True(t, svc.Get(ctx, "attendance:STUDENT:s1", &dest))
	assert.Equal(t, 3, dest["present"])

	svc.Invalidate(ctx, "attendance:*")
	assert.Empty(t, repo.items)
}

func TestCacheServiceSwallowsBackendErrors(t *testing.T) {
	repo := newMemoryCache()
	repo.getErr = errors.New("redis down")
	repo.setErr = errors.New("redis down")
	repo.deleteErr = errors.New("redis down")
	svc := NewCacheService(repo, nil, 0, nil, true)
	ctx := context.Background()

	var dest map[string]int
	assert.False(t, svc.Get(ctx, "k", &dest))
	svc.Set(ctx, "k", 1, 0)
	svc.Invalidate(ctx, "*")
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, 0, nil, false)

	svc.Set(context.Background(), "k", 1, 0)
	assert.Empty(t, repo.items)
	var v int
	assert.False(t, svc.Get(context.Background(), "k", &v))
}
