package gallery

import (
	"context"
	"testing"

	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(categories []models.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = c.Name
	}
	return out
}

func TestCategories_Cached(t *testing.T) {
	env := newTestEnv(t, withCategories("Nature", "Architecture", "Portrait"))
	ctx := context.Background()

	got, err := env.svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Architecture", "Nature", "Portrait"}, names(got))

	exists, err := env.cache.Exists(ctx, cache.Categories.Build("all"))
	require.NoError(t, err)
	assert.True(t, exists)

	// 新增分类在缓存失效前不可见
	require.NoError(t, env.db.DB().Create(&models.Category{Name: "Street"}).Error)
	got, err = env.svc.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	env.svc.InvalidateCategories(ctx)
	got, err = env.svc.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestSuggestCategories(t *testing.T) {
	env := newTestEnv(t, withCategories("Nature", "Night Sky", "Portrait", "Street"))
	ctx := context.Background()

	got, err := env.svc.SuggestCategories(ctx, "nat", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nature"}, names(got))

	got, err = env.svc.SuggestCategories(ctx, "st", 0)
	require.NoError(t, err)
	assert.Contains(t, names(got), "Street")
	assert.NotContains(t, names(got), "Nature")

	got, err = env.svc.SuggestCategories(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = env.svc.SuggestCategories(ctx, "zzz", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchSuggestions(t *testing.T) {
	env := newTestEnv(t, withCategories("Nature", "Night Sky", "Street"))
	ctx := context.Background()
	owner := env.seedUser(t, "owner@example.com", "Owner")
	env.seedImages(t, owner, "Sunset nature walk", "", "NATURE", "Forest")

	got, err := env.svc.SearchSuggestions(ctx, "na")
	require.NoError(t, err)
	assert.Equal(t, []string{"NATURE", "Sunset nature walk"}, got)

	got, err = env.svc.SearchSuggestions(ctx, "street")
	require.NoError(t, err)
	assert.Equal(t, []string{"Street"}, got)

	got, err = env.svc.SearchSuggestions(ctx, " n ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveCategory(t *testing.T) {
	env := newTestEnv(t, withCategories("Nature", "Night Sky"))
	ctx := context.Background()

	c, err := env.svc.ResolveCategory(ctx, "NATURE")
	require.NoError(t, err)
	assert.Equal(t, "Nature", c.Name)

	c, err = env.svc.ResolveCategory(ctx, "nsky")
	require.NoError(t, err)
	assert.Equal(t, "Night Sky", c.Name)

	_, err = env.svc.ResolveCategory(ctx, "underwater")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = env.svc.ResolveCategory(ctx, " ")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
