package gallery

import (
	"bytes"
	"context"
	"image"
	"regexp"
	"strings"
	"testing"

	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/anoixa/image-gallery/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadImage(t *testing.T) {
	env := newTestEnv(t, withCategories("Nature", "City"))
	ctx := context.Background()
	owner := env.seedUser(t, "owner@example.com", "Owner")
	nature := env.category(t, "Nature")
	city := env.category(t, "City")

	m, _ := env.manager(owner)
	img, err := m.UploadImage(ctx, Upload{
		File:        bytes.NewReader(pngBytes(t, 4000, 3000)),
		Filename:    "Holiday Beach.png",
		Title:       "  Beach  ",
		CategoryIDs: []uint{nature.ID, city.ID, nature.ID},
	})
	require.NoError(t, err)

	wantKey := img.StoragePath
	assert.Regexp(t, `^`+regexp.QuoteMeta(owner.ID)+`/1700000000000_[0-9a-f]{8}_Holiday_Beach\.jpg$`, wantKey)
	assert.Equal(t, "Beach", img.Title)
	assert.Equal(t, "Holiday Beach.png", img.Filename)
	assert.Equal(t, 1400, img.Width)
	assert.Equal(t, 1050, img.Height)
	assert.Equal(t, "image/jpeg", img.MimeType)

	rc, err := env.local.Open(ctx, storage.BucketImages, wantKey)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(rc)
	_ = rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1400, cfg.Width)
	assert.Equal(t, 1050, cfg.Height)

	assert.Equal(t, int64(2), countRows[models.ImageCategory](t, env, "image_id = ?", img.ID))
	assert.Equal(t, "http://localhost:8080/files/images/"+wantKey, m.ImageURL(img.StoragePath))
}

func TestUploadImage_SameNameSameInstant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner@example.com", "Owner")
	m, _ := env.manager(owner)

	first, err := m.UploadImage(ctx, Upload{File: bytes.NewReader(pngBytes(t, 16, 16)), Filename: "a.png"})
	require.NoError(t, err)
	second, err := m.UploadImage(ctx, Upload{File: bytes.NewReader(pngBytes(t, 24, 24)), Filename: "a.png"})
	require.NoError(t, err)
	assert.NotEqual(t, first.StoragePath, second.StoragePath)

	for _, img := range []*models.Image{first, second} {
		rc, err := env.local.Open(ctx, storage.BucketImages, img.StoragePath)
		require.NoError(t, err)
		cfg, _, err := image.DecodeConfig(rc)
		_ = rc.Close()
		require.NoError(t, err)
		assert.Equal(t, img.Width, cfg.Width)
	}
	assert.Equal(t, int64(2), countRows[models.Image](t, env, ""))
}

func TestUploadImage_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	m, _ := env.manager(nil)

	_, err := m.UploadImage(context.Background(), Upload{File: bytes.NewReader(pngBytes(t, 10, 10)), Filename: "a.png"})
	assert.True(t, apperr.IsKind(err, apperr.KindAuthRequired))
	assert.Zero(t, countRows[models.Image](t, env, ""))
}

func TestUploadImage_Validation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "owner@example.com", "Owner")
	m, _ := env.manager(owner)
	ctx := context.Background()

	_, err := m.UploadImage(ctx, Upload{File: bytes.NewReader(pngBytes(t, 10, 10)), Filename: "a.png", Title: strings.Repeat("x", MaxTitleLength+1)})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = m.UploadImage(ctx, Upload{File: bytes.NewReader(pngBytes(t, 10, 10))})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = m.UploadImage(ctx, Upload{File: strings.NewReader("plain text"), Filename: "notes.png"})
	assert.True(t, apperr.IsKind(err, apperr.KindDecode))

	assert.Zero(t, countRows[models.Image](t, env, ""))
}

func TestUploadImage_StorageFailureLeavesNoMetadata(t *testing.T) {
	env := newTestEnv(t, withFailingStorage())
	owner := env.seedUser(t, "owner@example.com", "Owner")
	m, _ := env.manager(owner)

	_, err := m.UploadImage(context.Background(), Upload{File: bytes.NewReader(pngBytes(t, 50, 50)), Filename: "a.png"})
	assert.True(t, apperr.IsKind(err, apperr.KindStorage))
	assert.Equal(t, 1, env.store.(*failingStore).puts)
	assert.Zero(t, countRows[models.Image](t, env, ""))
}

func TestUploadImage_CategoryFailureKeepsImage(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "owner@example.com", "Owner")
	m, _ := env.manager(owner)

	img, err := m.UploadImage(context.Background(), Upload{
		File:        bytes.NewReader(pngBytes(t, 50, 50)),
		Filename:    "a.png",
		CategoryIDs: []uint{999},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countRows[models.Image](t, env, "id = ?", img.ID))
	assert.Zero(t, countRows[models.ImageCategory](t, env, ""))
}

func TestRateImage_Upsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner@example.com", "Owner")
	rater := env.seedUser(t, "rater@example.com", "Rater")
	images := env.seedImages(t, owner, "photo")

	anon, _ := env.manager(nil)
	_, err := anon.RateImage(ctx, images[0].ID, 4)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthRequired))

	m, _ := env.manager(rater)
	require.NoError(t, m.LoadPage(ctx, 1, Filters{}))

	for _, bad := range []int{0, 6, -1} {
		_, err := m.RateImage(ctx, images[0].ID, bad)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), "rating %d", bad)
	}

	_, err = m.RateImage(ctx, images[0].ID, 4)
	require.NoError(t, err)
	stat, err := m.RateImage(ctx, images[0].ID, 2)
	require.NoError(t, err)

	var rows []models.Rating
	require.NoError(t, env.db.DB().Where("image_id = ? AND user_id = ?", images[0].ID, rater.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Rating)

	assert.Equal(t, int64(1), stat.RatingCount)
	assert.InDelta(t, 2.0, stat.AvgRating, 0.001)

	// 列表中的卡片同步刷新
	card, ok := m.Image(images[0].ID)
	require.True(t, ok)
	assert.InDelta(t, 2.0, card.AvgRating, 0.001)

	rating, err := m.UserRating(ctx, images[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rating)
}

func TestToggleFavorite_Involution(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner@example.com", "Owner")
	images := env.seedImages(t, owner, "photo")

	anon, _ := env.manager(nil)
	_, err := anon.ToggleFavorite(ctx, images[0].ID)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthRequired))
	assert.Zero(t, countRows[models.Favorite](t, env, ""))

	m, _ := env.manager(owner)
	require.NoError(t, m.LoadPage(ctx, 1, Filters{}))

	on, err := m.ToggleFavorite(ctx, images[0].ID)
	require.NoError(t, err)
	assert.True(t, on)
	card, _ := m.Image(images[0].ID)
	assert.Equal(t, int64(1), card.FavoriteCount)

	set, err := m.FavoriteSet(ctx)
	require.NoError(t, err)
	assert.True(t, set[images[0].ID])

	off, err := m.ToggleFavorite(ctx, images[0].ID)
	require.NoError(t, err)
	assert.False(t, off)
	card, _ = m.Image(images[0].ID)
	assert.Zero(t, card.FavoriteCount)

	fav, err := m.IsFavorite(ctx, images[0].ID)
	require.NoError(t, err)
	assert.False(t, fav)
	assert.Zero(t, countRows[models.Favorite](t, env, ""))
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner@example.com", "Owner")
	images := env.seedImages(t, owner, "photo")

	anon, _ := env.manager(nil)
	_, err := anon.AddComment(ctx, images[0].ID, "hi")
	assert.True(t, apperr.IsKind(err, apperr.KindAuthRequired))

	m, _ := env.manager(owner)
	require.NoError(t, m.LoadPage(ctx, 1, Filters{}))

	_, err = m.AddComment(ctx, images[0].ID, "   ")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = m.AddComment(ctx, images[0].ID, strings.Repeat("a", MaxCommentLength+1))
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	comment, err := m.AddComment(ctx, images[0].ID, "  lovely light  ")
	require.NoError(t, err)
	assert.Equal(t, "lovely light", comment.Content)
	assert.NotZero(t, comment.ID)

	card, _ := m.Image(images[0].ID)
	assert.Equal(t, int64(1), card.CommentCount)
}

func TestDeleteComment_AuthorOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner@example.com", "Owner")
	other := env.seedUser(t, "other@example.com", "Other")
	admin := env.seedUser(t, "admin@example.com", "Admin")
	admin.Role = models.RoleAdmin
	images := env.seedImages(t, owner, "photo")

	author, _ := env.manager(owner)
	first, err := author.AddComment(ctx, images[0].ID, "first")
	require.NoError(t, err)
	second, err := author.AddComment(ctx, images[0].ID, "second")
	require.NoError(t, err)

	stranger, _ := env.manager(other)
	err = stranger.DeleteComment(ctx, first.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))

	require.NoError(t, author.DeleteComment(ctx, first.ID))

	moderator, _ := env.manager(admin)
	require.NoError(t, moderator.DeleteComment(ctx, second.ID))

	err = author.DeleteComment(ctx, second.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, countRows[models.Comment](t, env, ""))
}

func TestUpdateTitle_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner@example.com", "Owner")
	other := env.seedUser(t, "other@example.com", "Other")
	images := env.seedImages(t, owner, "old")

	stranger, _ := env.manager(other)
	_, err := stranger.UpdateTitle(ctx, images[0].ID, "hijacked")
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))

	m, _ := env.manager(owner)
	stat, err := m.UpdateTitle(ctx, images[0].ID, " new title ")
	require.NoError(t, err)
	assert.Equal(t, "new title", stat.Title)

	// 空标题回退到文件名
	stat, err = m.UpdateTitle(ctx, images[0].ID, "")
	require.NoError(t, err)
	assert.Equal(t, images[0].Filename, stat.DisplayTitle())
}

func TestDeleteImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner@example.com", "Owner")
	other := env.seedUser(t, "other@example.com", "Other")

	m, _ := env.manager(owner)
	img, err := m.UploadImage(ctx, Upload{File: bytes.NewReader(pngBytes(t, 64, 48)), Filename: "a.png"})
	require.NoError(t, err)
	_, err = m.RateImage(ctx, img.ID, 5)
	require.NoError(t, err)
	_, err = m.AddComment(ctx, img.ID, "mine")
	require.NoError(t, err)
	require.NoError(t, m.LoadPage(ctx, 1, Filters{}))
	require.Len(t, m.Snapshot().Images, 1)

	stranger, _ := env.manager(other)
	err = stranger.DeleteImage(ctx, img.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))

	require.NoError(t, m.DeleteImage(ctx, img.ID))
	assert.Empty(t, m.Snapshot().Images)
	assert.Zero(t, countRows[models.Image](t, env, ""))
	assert.Zero(t, countRows[models.Rating](t, env, ""))
	assert.Zero(t, countRows[models.Comment](t, env, ""))

	exists, err := env.local.Exists(ctx, storage.BucketImages, img.StoragePath)
	require.NoError(t, err)
	assert.False(t, exists)

	err = m.DeleteImage(ctx, img.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteImage_StorageFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "owner@example.com", "Owner")
	images := env.seedImages(t, owner, "never uploaded")

	// 存储中没有对应对象，删除元数据仍然成功
	m, _ := env.manager(owner)
	require.NoError(t, m.DeleteImage(ctx, images[0].ID))
	assert.Zero(t, countRows[models.Image](t, env, ""))
}
