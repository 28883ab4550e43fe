package di

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/internal/auth"
	"github.com/anoixa/image-gallery/internal/compress"
	"github.com/anoixa/image-gallery/internal/gallery"
	"github.com/anoixa/image-gallery/internal/remote"
	"github.com/anoixa/image-gallery/internal/render"
	"github.com/anoixa/image-gallery/internal/shell"
	"github.com/anoixa/image-gallery/internal/worker"
	"github.com/anoixa/image-gallery/storage"
)

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config          *config.Config
	databaseFactory *database.Factory
	storage         storage.Provider
	cache           cache.Provider
	client          *remote.Client
	pool            *worker.Pool
	compressor      *compress.Compressor
	gallery         *gallery.Service
	registry        *shell.Registry
	renderer        *render.Renderer
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// Init 初始化所有服务
func (c *Container) Init(ctx context.Context) error {
	log.Println("Initializing DI container...")

	if err := c.initDatabaseFactory(); err != nil {
		return fmt.Errorf("failed to initialize database factory: %w", err)
	}

	if err := c.initStorage(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := c.initCache(ctx); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	if err := c.initRemoteClient(); err != nil {
		return fmt.Errorf("failed to initialize remote client: %w", err)
	}

	if err := c.initGallery(); err != nil {
		return fmt.Errorf("failed to initialize gallery: %w", err)
	}

	renderer, err := render.New()
	if err != nil {
		return err
	}
	c.renderer = renderer

	log.Println("DI container initialized successfully")
	return nil
}

// initDatabaseFactory 初始化数据库工厂
func (c *Container) initDatabaseFactory() error {
	factory, err := database.NewFactory(c.config)
	if err != nil {
		return err
	}
	c.databaseFactory = factory
	log.Println("Database factory initialized")
	return nil
}

func (c *Container) initStorage(ctx context.Context) error {
	provider, err := storage.NewProvider(ctx, c.config)
	if err != nil {
		return err
	}
	c.storage = provider
	log.Printf("Storage provider '%s' initialized", provider.Name())
	return nil
}

func (c *Container) initCache(ctx context.Context) error {
	provider, err := cache.NewProvider(ctx, c.config)
	if err != nil {
		return err
	}
	c.cache = provider
	log.Printf("Cache provider '%s' initialized", provider.Name())
	return nil
}

func (c *Container) initRemoteClient() error {
	client, err := remote.New(c.databaseFactory.GetProvider(), c.storage, c.cache, remote.OptionsFromConfig(c.config))
	if err != nil {
		return err
	}
	c.client = client
	log.Println("Remote client initialized")
	return nil
}

// initGallery 图库服务与会话注册表
func (c *Container) initGallery() error {
	compressor, err := compress.New(c.config.CompressEngine)
	if err != nil {
		return err
	}
	c.compressor = compressor
	c.pool = worker.NewPool(c.config.WorkerCount, c.config.WorkerQueueSize)

	c.gallery = gallery.NewService(c.client, c.cache, c.pool, compressor, nil, gallery.Config{
		PageSize: c.config.GalleryPageSize,
		Upload: compress.Options{
			MaxDimension: c.config.UploadMaxDimension,
			Quality:      c.config.UploadQuality,
			MaxPixels:    c.config.UploadMaxPixels,
		},
		CategoryTTL: c.config.CacheCategoryTTL,
	})

	c.registry = shell.NewRegistry(shell.Deps{
		Backend: c.client,
		Gallery: c.gallery,
		AuthOptions: auth.Options{
			Compressor: compressor,
			Avatar: compress.Options{
				MaxDimension: c.config.AvatarMaxDimension,
				Quality:      c.config.AvatarQuality,
				MaxPixels:    c.config.UploadMaxPixels,
			},
		},
		SearchDebounce: c.config.SearchDebounce,
		ScrollThrottle: c.config.ScrollThrottle,
	}, c.config.SessionIdleTimeout)
	c.registry.StartJanitor()

	log.Printf("Gallery initialized (engine: %s, page size: %d)", compressor.EngineName(), c.gallery.PageSize())
	return nil
}

// GetDatabaseFactory 获取数据库工厂
func (c *Container) GetDatabaseFactory() *database.Factory {
	return c.databaseFactory
}

// GetDatabaseProvider 获取数据库提供者
func (c *Container) GetDatabaseProvider() database.Provider {
	if c.databaseFactory == nil {
		return nil
	}
	return c.databaseFactory.GetProvider()
}

func (c *Container) GetStorage() storage.Provider { return c.storage }

func (c *Container) GetCache() cache.Provider { return c.cache }

func (c *Container) GetRemoteClient() *remote.Client { return c.client }

func (c *Container) GetWorkerPool() *worker.Pool { return c.pool }

func (c *Container) GetGallery() *gallery.Service { return c.gallery }

func (c *Container) GetRegistry() *shell.Registry { return c.registry }

func (c *Container) GetRenderer() *render.Renderer { return c.renderer }

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// Close 按依赖的逆序关闭
func (c *Container) Close() error {
	log.Println("Closing DI container...")

	if c.registry != nil {
		c.registry.Close()
	}

	// 等待排队中的删除任务完成
	if c.pool != nil {
		c.pool.Stop()
	}

	if c.client != nil {
		c.client.Close()
	}

	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			log.Printf("Error closing cache: %v", err)
		}
	}

	if c.databaseFactory != nil {
		if err := c.databaseFactory.Close(); err != nil {
			log.Printf("Error closing database factory: %v", err)
		}
	}

	log.Println("DI container closed")
	return nil
}
