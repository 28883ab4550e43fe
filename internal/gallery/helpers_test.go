package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/database/dbtest"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/internal/compress"
	"github.com/anoixa/image-gallery/internal/remote"
	"github.com/anoixa/image-gallery/storage"
	cryptopackage "github.com/anoixa/image-gallery/utils/crypto"
	"github.com/anoixa/image-gallery/utils/generator"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testHashParams = cryptopackage.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

var fixedNow = time.UnixMilli(1700000000000)

type testEnv struct {
	db     database.Provider
	store  storage.Provider
	local  *storage.LocalStorage
	cache  *cache.Memory
	client *remote.Client
	svc    *Service
}

// failingStore 让 Put 失败，其余操作走本地存储
type failingStore struct {
	*storage.LocalStorage
	puts int
}

func (f *failingStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	f.puts++
	return errors.New("bucket unavailable")
}

type envOption func(*envOptions)

type envOptions struct {
	failPuts   bool
	categories []string
	cfg        Config
}

func withFailingStorage() envOption {
	return func(o *envOptions) { o.failPuts = true }
}

func withCategories(names ...string) envOption {
	return func(o *envOptions) { o.categories = names }
}

func withPageSize(n int) envOption {
	return func(o *envOptions) { o.cfg.PageSize = n }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	o := envOptions{cfg: Config{Upload: compress.Options{MaxDimension: 1400, Quality: 75}}}
	for _, fn := range opts {
		fn(&o)
	}

	db := dbtest.OpenSeeded(t, o.categories...)
	local, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)

	var store storage.Provider = local
	if o.failPuts {
		store = &failingStore{LocalStorage: local}
	}

	mem, err := cache.NewMemory(cache.MemoryConfig{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)

	client, err := remote.New(db, store, mem, remote.Options{
		JWTSecret:         []byte("0123456789abcdef0123456789abcdef"),
		AccessTokenTTL:    time.Hour,
		AutoConfirm:       true,
		MinPasswordLength: 6,
		HashParams:        &testHashParams,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
		_ = mem.Close()
	})

	paths := generator.NewPathGeneratorWithClock(func() time.Time { return fixedNow })
	svc := NewService(client, mem, nil, compress.Default(), paths, o.cfg)

	return &testEnv{db: db, store: store, local: local, cache: mem, client: client, svc: svc}
}

// viewer 可切换的身份
type viewer struct {
	user *models.User
}

func (v *viewer) CurrentUser() *models.User { return v.user }

func (env *testEnv) manager(user *models.User) (*Manager, *viewer) {
	v := &viewer{user: user}
	return env.svc.NewManager(v), v
}

func (env *testEnv) seedUser(t *testing.T, email, displayName string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, env.db.DB().Create(user).Error)
	profile := &models.Profile{UserID: user.ID, DisplayName: displayName}
	require.NoError(t, env.db.DB().Create(profile).Error)
	user.Profile = profile
	return user
}

func (env *testEnv) seedImages(t *testing.T, owner *models.User, titles ...string) []models.Image {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	images := make([]models.Image, 0, len(titles))
	for i, title := range titles {
		img := models.Image{
			UserID:      owner.ID,
			StoragePath: fmt.Sprintf("%s/%d_%s_img.jpg", owner.ID, base.UnixMilli(), uuid.NewString()),
			Title:       title,
			Filename:    fmt.Sprintf("img%d.jpg", i),
			MimeType:    compress.ContentType,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, env.db.DB().Create(&img).Error)
		images = append(images, img)
	}
	return images
}

func (env *testEnv) category(t *testing.T, name string) models.Category {
	t.Helper()
	var c models.Category
	require.NoError(t, env.db.DB().Where("name = ?", name).Take(&c).Error)
	return c
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x += 7 {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func countRows[T any](t *testing.T, env *testEnv, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := env.db.DB().Model(new(T))
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
