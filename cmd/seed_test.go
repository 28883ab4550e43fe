package cmd

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/database/dbtest"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/compress"
	"github.com/anoixa/image-gallery/internal/gallery"
	"github.com/anoixa/image-gallery/internal/remote"
	"github.com/anoixa/image-gallery/storage"
	cryptopackage "github.com/anoixa/image-gallery/utils/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSeedEnv(t *testing.T) (*gorm.DB, *remote.Client, *gallery.Service) {
	t.Helper()
	db := dbtest.OpenSeeded(t, "Nature", "Street")
	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)
	mem, err := cache.NewMemory(cache.MemoryConfig{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)

	client, err := remote.New(db, store, mem, remote.Options{
		JWTSecret:         []byte("0123456789abcdef0123456789abcdef"),
		AccessTokenTTL:    time.Hour,
		MinPasswordLength: 6,
		HashParams:        &cryptopackage.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
		_ = mem.Close()
	})

	svc := gallery.NewService(client, mem, nil, compress.Default(), nil, gallery.Config{})
	return db.DB(), client, svc
}

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	db, client, svc := newSeedEnv(t)

	ticks := 0
	opts := seedOptions{email: "demo@example.com", password: "demo-password", count: 3, workers: 1}
	results, err := seedDemo(ctx, client, svc, opts, func() { ticks++ })
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NoError(t, r.Err, r.Title)
	}
	assert.Equal(t, 3, ticks)

	var user models.User
	require.NoError(t, db.Where("email = ?", "demo@example.com").Take(&user).Error)
	assert.True(t, user.Confirmed())

	var count int64
	require.NoError(t, db.Model(&models.Image{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(3), count)
	require.NoError(t, db.Model(&models.ImageCategory{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
	require.NoError(t, db.Model(&models.Rating{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	// 第二次运行复用已有账号
	_, err = seedDemo(ctx, client, svc, opts, nil)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSeedDemo_InvalidCount(t *testing.T) {
	_, client, svc := newSeedEnv(t)
	_, err := seedDemo(context.Background(), client, svc, seedOptions{email: "demo@example.com", password: "demo-password"}, nil)
	assert.Error(t, err)
}

func TestDemoImage(t *testing.T) {
	data, err := demoImage(rand.New(rand.NewSource(1)), 64, 48)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}
