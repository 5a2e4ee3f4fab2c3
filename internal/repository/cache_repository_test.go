package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

func TestCacheRepositoryWithoutRedisAlwaysMisses(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "consistency:last_report", models.ConsistencyReport{TotalIssues: 3}, time.Minute))

	var report models.ConsistencyReport
	err := repo.Get(ctx, "consistency:last_report", &report)
	assert.True(t, appErrors.Is(err, appErrors.ErrCacheMiss))
	assert.Zero(t, report.TotalIssues)

	assert.NoError(t, repo.DeleteByPattern(ctx, "consistency:*"))
}

func TestCacheRepositoryNamespacesKeys(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	assert.Equal(t, "results:consistency:last_report", repo.key("consistency:last_report"))
}
