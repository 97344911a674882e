package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/attendx-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	assert.False(t, repo.Enabled())

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "attendance:STUDENT:1", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "attendance:STUDENT:1", map[string]int{"a": 1}, time.Minute))

	removed, err := repo.DeleteByPattern(ctx, "attendance:*")
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.NoError(t, repo.Ping(ctx))
}
