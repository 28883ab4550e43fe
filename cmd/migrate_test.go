package cmd

import (
	"context"
	"testing"

	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/database/dbtest"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTarget(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := openDatabase("sqlite", "file:target_"+t.Name()+"?mode=memory&cache=shared&_foreign_keys=1")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	require.NoError(t, database.CreateViews(db))
	return db
}

func seedSource(t *testing.T) *gorm.DB {
	t.Helper()
	db := dbtest.OpenSeeded(t, "Nature", "Street").DB()

	user := &models.User{Email: "ann@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: user.ID, DisplayName: "Ann"}).Error)

	img := &models.Image{UserID: user.ID, StoragePath: user.ID + "/1_a.jpg", Title: "a", Filename: "a.jpg", MimeType: "image/jpeg"}
	require.NoError(t, db.Create(img).Error)

	var nature models.Category
	require.NoError(t, db.Where("name = ?", "Nature").Take(&nature).Error)
	require.NoError(t, db.Create(&models.ImageCategory{ImageID: img.ID, CategoryID: nature.ID}).Error)
	require.NoError(t, db.Create(&models.Rating{ImageID: img.ID, UserID: user.ID, Rating: 4}).Error)
	require.NoError(t, db.Create(&models.Favorite{ImageID: img.ID, UserID: user.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{ImageID: img.ID, UserID: user.ID, Content: "hi"}).Error)
	return db
}

func TestCopyAll(t *testing.T) {
	ctx := context.Background()
	source := seedSource(t)
	target := openTarget(t)

	stats, err := copyAll(ctx, source, target, 2, "skip")
	require.NoError(t, err)
	assert.Empty(t, stats.errors)
	assert.Equal(t, int64(1), stats.copied["users"])
	assert.Equal(t, int64(2), stats.copied["categories"])
	assert.Equal(t, int64(1), stats.copied["image_categories"])
	assert.Equal(t, int64(1), stats.copied["comments"])

	var stat models.ImageStat
	require.NoError(t, target.Take(&stat).Error)
	assert.Equal(t, int64(1), stat.RatingCount)
	assert.Equal(t, int64(1), stat.FavoriteCount)
	assert.InDelta(t, 4.0, stat.AvgRating, 0.001)

	// 再次执行时已有记录全部跳过
	stats, err = copyAll(ctx, source, target, 2, "skip")
	require.NoError(t, err)
	assert.Zero(t, stats.copied["users"])
	assert.Equal(t, int64(1), stats.skipped["users"])
	assert.Equal(t, int64(2), stats.skipped["categories"])
}

func TestCopyAll_ErrorOnConflict(t *testing.T) {
	ctx := context.Background()
	source := seedSource(t)
	target := openTarget(t)

	_, err := copyAll(ctx, source, target, 100, "error")
	require.NoError(t, err)

	stats, err := copyAll(ctx, source, target, 100, "error")
	assert.Error(t, err)
	assert.NotEmpty(t, stats.errors)
}

func TestRunMigration_Validation(t *testing.T) {
	err := runMigration(migrateOptions{fromType: "sqlite", toType: "postgres", fromDSN: "a", toDSN: "b", onConflict: "merge"})
	assert.ErrorContains(t, err, "invalid on-conflict")

	err = runMigration(migrateOptions{fromType: "sqlite", toType: "sqlite", fromDSN: "a.db", toDSN: "a.db", onConflict: "skip"})
	assert.ErrorContains(t, err, "the same")
}
