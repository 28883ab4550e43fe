package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, env *testEnv, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, env.db.DB().Create(user).Error)
	require.NoError(t, env.db.DB().Create(&models.Profile{UserID: user.ID, DisplayName: email}).Error)
	return user
}

func seedImages(t *testing.T, env *testEnv, owner *models.User, titles ...string) []models.Image {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	images := make([]models.Image, 0, len(titles))
	for i, title := range titles {
		img := models.Image{
			UserID:      owner.ID,
			StoragePath: fmt.Sprintf("%s/%d_%s_img.jpg", owner.ID, i, uuid.NewString()[:8]),
			Title:       title,
			Filename:    fmt.Sprintf("img%d.jpg", i),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, env.db.DB().Create(&img).Error)
		images = append(images, img)
	}
	return images
}

func TestSelect_FiltersSortRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := seedUser(t, env, "owner@example.com")
	seedImages(t, env, owner, "Sunset Beach", "Mountain", "sunset over city", "Forest", "SUNSET")

	rows, err := Select[models.ImageStat](ctx, env.client, Query{
		Filters: []Filter{Contains("title", "sunset")},
		Sort:    []Sort{{Column: "created_at", Desc: true}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "SUNSET", rows[0].Title)
	assert.Equal(t, "Sunset Beach", rows[2].Title)

	page, err := Select[models.ImageStat](ctx, env.client, Query{
		Sort:  []Sort{{Column: "created_at"}},
		Range: &Range{From: 1, To: 2},
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Mountain", page[0].Title)
	assert.Equal(t, "sunset over city", page[1].Title)
}

func TestSelect_ContainsEscapesWildcards(t *testing.T) {
	env := newTestEnv(t)
	owner := seedUser(t, env, "owner@example.com")
	seedImages(t, env, owner, "100% real", "1000 real", "snake_case", "snakeXcase")

	rows, err := Select[models.Image](context.Background(), env.client, Query{Filters: []Filter{Contains("title", "100%")}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "100% real", rows[0].Title)

	rows, err = Select[models.Image](context.Background(), env.client, Query{Filters: []Filter{Contains("title", "_case")}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "snake_case", rows[0].Title)
}

func TestSelect_InAndComparisons(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := seedUser(t, env, "owner@example.com")
	images := seedImages(t, env, owner, "a", "b", "c", "d")

	rows, err := Select[models.Image](ctx, env.client, Query{
		Filters: []Filter{In("id", []string{images[0].ID, images[2].ID}), Neq("title", "c")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].Title)

	rows, err = Select[models.Image](ctx, env.client, Query{
		Filters: []Filter{Gte("created_at", images[1].CreatedAt), Lte("created_at", images[2].CreatedAt)},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = Select[models.Image](ctx, env.client, Query{Filters: []Filter{In("id", []string{})}})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSelect_RejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := Select[models.Image](ctx, env.client, Query{Filters: []Filter{Eq("title; DROP TABLE images", "x")}})
	assert.True(t, apperr.IsKind(err, apperr.KindQuery))

	_, err = Select[models.Image](ctx, env.client, Query{Range: &Range{From: 5, To: 1}})
	assert.True(t, apperr.IsKind(err, apperr.KindQuery))

	_, err = Select[models.Image](ctx, env.client, Query{Filters: []Filter{In("id", "not-a-slice")}})
	assert.True(t, apperr.IsKind(err, apperr.KindQuery))
}

func TestFirstAndCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := seedUser(t, env, "owner@example.com")
	seedImages(t, env, owner, "x", "y")

	n, err := Count[models.Image](ctx, env.client, Eq("user_id", owner.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	img, err := First[models.Image](ctx, env.client, Eq("title", "y"))
	require.NoError(t, err)
	assert.Equal(t, "y", img.Title)

	_, err = First[models.Image](ctx, env.client, Eq("title", "missing"))
	assert.True(t, apperr.IsKind(err, apperr.KindQuery))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	ids, err := Pluck[models.Image, string](ctx, env.client, "title", Eq("user_id", owner.ID))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, ids)
}

func TestUpsert_RatingKeepsOneRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := seedUser(t, env, "owner@example.com")
	rater := seedUser(t, env, "rater@example.com")
	img := seedImages(t, env, owner, "rated")[0]

	conflict := []string{"image_id", "user_id"}
	update := []string{"rating", "updated_at"}

	require.NoError(t, Upsert(ctx, env.client, &models.Rating{ImageID: img.ID, UserID: rater.ID, Rating: 4}, conflict, update))
	require.NoError(t, Upsert(ctx, env.client, &models.Rating{ImageID: img.ID, UserID: rater.ID, Rating: 2}, conflict, update))

	rows, err := Select[models.Rating](ctx, env.client, Query{Filters: []Filter{Eq("image_id", img.ID), Eq("user_id", rater.ID)}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Rating)

	err = Upsert(ctx, env.client, &models.Rating{ImageID: img.ID, UserID: rater.ID, Rating: 3}, nil, update)
	assert.True(t, apperr.IsKind(err, apperr.KindWrite))
}

func TestUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := seedUser(t, env, "owner@example.com")
	img := seedImages(t, env, owner, "old")[0]

	n, err := Update[models.Image](ctx, env.client, map[string]interface{}{"title": "new"}, Eq("id", img.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = Update[models.Image](ctx, env.client, map[string]interface{}{"title": "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindWrite))

	_, err = Update[models.Image](ctx, env.client, map[string]interface{}{"title": "x"}, Eq("id", "missing"))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	n, err = Delete[models.Image](ctx, env.client, Eq("id", img.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = Delete[models.Image](ctx, env.client, Eq("id", img.ID))
	assert.True(t, apperr.IsKind(err, apperr.KindWrite))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = Delete[models.Image](ctx, env.client)
	assert.True(t, apperr.IsKind(err, apperr.KindWrite))
}

func TestInsertMany(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := seedUser(t, env, "owner@example.com")
	img := seedImages(t, env, owner, "tagged")[0]

	cats := []models.Category{{Name: "Nature"}, {Name: "Street"}}
	require.NoError(t, InsertMany(ctx, env.client, cats))
	require.NoError(t, InsertMany[models.ImageCategory](ctx, env.client, nil))

	joins := []models.ImageCategory{{ImageID: img.ID, CategoryID: cats[0].ID}, {ImageID: img.ID, CategoryID: cats[1].ID}}
	require.NoError(t, InsertMany(ctx, env.client, joins))

	// 重复插入违反主键
	err := InsertMany(ctx, env.client, joins[:1])
	assert.True(t, apperr.IsKind(err, apperr.KindWrite))
}

func TestPageRange(t *testing.T) {
	assert.Equal(t, Range{From: 0, To: 19}, PageRange(1, 20))
	assert.Equal(t, Range{From: 20, To: 39}, PageRange(2, 20))
	assert.Equal(t, Range{From: 0, To: 19}, PageRange(0, 20))
}
