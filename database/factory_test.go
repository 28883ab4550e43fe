package database_test

import (
	"context"
	"testing"

	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/database/dbtest"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createUser(t *testing.T, provider database.Provider, email, name string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, provider.DB().Create(user).Error)
	require.NoError(t, provider.DB().Create(&models.Profile{UserID: user.ID, DisplayName: name}).Error)
	return user
}

func TestSeedCategories_Idempotent(t *testing.T) {
	provider := dbtest.Open(t)
	ctx := context.Background()

	n, err := database.SeedCategories(ctx, provider.DB(), []string{"Nature", "Street", " "})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = database.SeedCategories(ctx, provider.DB(), []string{"Nature", "Travel"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var count int64
	require.NoError(t, provider.DB().Model(&models.Category{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestImageStatsView_Aggregates(t *testing.T) {
	provider := dbtest.Open(t)
	db := provider.DB()

	owner := createUser(t, provider, "owner@example.com", "Owner")
	alice := createUser(t, provider, "alice@example.com", "Alice")
	bob := createUser(t, provider, "bob@example.com", "Bob")

	img := &models.Image{UserID: owner.ID, StoragePath: owner.ID + "/1_a.jpg", Filename: "a.jpg", Title: "Sunset"}
	require.NoError(t, db.Create(img).Error)

	require.NoError(t, db.Create(&models.Rating{ImageID: img.ID, UserID: alice.ID, Rating: 4}).Error)
	require.NoError(t, db.Create(&models.Rating{ImageID: img.ID, UserID: bob.ID, Rating: 2}).Error)
	require.NoError(t, db.Create(&models.Favorite{ImageID: img.ID, UserID: alice.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{ImageID: img.ID, UserID: bob.ID, Content: "nice"}).Error)

	var stat models.ImageStat
	require.NoError(t, db.Where("id = ?", img.ID).First(&stat).Error)

	assert.Equal(t, "Owner", stat.OwnerName)
	assert.InDelta(t, 3.0, stat.AvgRating, 0.001)
	assert.Equal(t, int64(2), stat.RatingCount)
	assert.Equal(t, int64(1), stat.FavoriteCount)
	assert.Equal(t, int64(1), stat.CommentCount)
	assert.Equal(t, "Sunset", stat.DisplayTitle())
}

func TestImageStatsView_NoRatings(t *testing.T) {
	provider := dbtest.Open(t)
	owner := createUser(t, provider, "owner@example.com", "")

	img := &models.Image{UserID: owner.ID, StoragePath: owner.ID + "/1_b.jpg", Filename: "b.jpg"}
	require.NoError(t, provider.DB().Create(img).Error)

	var stat models.ImageStat
	require.NoError(t, provider.DB().Where("id = ?", img.ID).First(&stat).Error)
	assert.Equal(t, 0.0, stat.AvgRating)
	assert.Equal(t, int64(0), stat.RatingCount)
	assert.Equal(t, "b.jpg", stat.DisplayTitle())
}

func TestRating_UniquePerUserAndImage(t *testing.T) {
	provider := dbtest.Open(t)
	db := provider.DB()

	owner := createUser(t, provider, "owner@example.com", "Owner")
	img := &models.Image{UserID: owner.ID, StoragePath: "p/1.jpg", Filename: "1.jpg"}
	require.NoError(t, db.Create(img).Error)

	require.NoError(t, db.Create(&models.Rating{ImageID: img.ID, UserID: owner.ID, Rating: 3}).Error)
	assert.Error(t, db.Create(&models.Rating{ImageID: img.ID, UserID: owner.ID, Rating: 5}).Error)
}

func TestDeleteImage_CascadesToInteractions(t *testing.T) {
	provider := dbtest.OpenSeeded(t, "Nature")
	db := provider.DB()

	owner := createUser(t, provider, "owner@example.com", "Owner")
	img := &models.Image{UserID: owner.ID, StoragePath: "p/2.jpg", Filename: "2.jpg"}
	require.NoError(t, db.Create(img).Error)

	var cat models.Category
	require.NoError(t, db.Where("name = ?", "Nature").First(&cat).Error)

	require.NoError(t, db.Create(&models.Rating{ImageID: img.ID, UserID: owner.ID, Rating: 5}).Error)
	require.NoError(t, db.Create(&models.Favorite{ImageID: img.ID, UserID: owner.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{ImageID: img.ID, UserID: owner.ID, Content: "mine"}).Error)
	require.NoError(t, db.Create(&models.ImageCategory{ImageID: img.ID, CategoryID: cat.ID}).Error)

	require.NoError(t, db.Delete(&models.Image{}, "id = ?", img.ID).Error)

	for _, model := range []interface{}{&models.Rating{}, &models.Favorite{}, &models.Comment{}, &models.ImageCategory{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}
}

func TestFactory_Ping(t *testing.T) {
	provider := dbtest.Open(t)
	factory := database.NewFactoryWithProvider(provider)
	assert.NoError(t, factory.Ping())
	assert.Equal(t, "sqlite", factory.GetProvider().Name())

	empty := &database.Factory{}
	assert.Error(t, empty.Ping())
	assert.Error(t, empty.AutoMigrate())
}
