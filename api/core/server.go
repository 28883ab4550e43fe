package core

import (
	"net/http"
	"time"

	"github.com/anoixa/image-gallery/api/middleware"
	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/internal/gallery"
	"github.com/anoixa/image-gallery/internal/remote"
	"github.com/anoixa/image-gallery/internal/render"
	"github.com/anoixa/image-gallery/internal/shell"
	"github.com/anoixa/image-gallery/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var startTime = time.Now()

// ServerDependencies 服务器依赖项
type ServerDependencies struct {
	Config   *config.Config
	Database database.Provider
	Cache    cache.Provider
	Storage  storage.Provider
	Client   *remote.Client
	Gallery  *gallery.Service
	Registry *shell.Registry
	Renderer *render.Renderer
}

// 启动gin
func setupRouter(deps *ServerDependencies) (*gin.Engine, func()) {
	cfg := deps.Config
	router := gin.New()

	// 全局中间件
	// 仅在开发版本时启用 gin 日志
	if config.IsDevelopment() {
		router.Use(gin.Logger())
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL()},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "HX-Request", "HX-Trigger", "HX-Trigger-Name", "HX-Target", "HX-Current-URL"},
		ExposeHeaders:    []string{"HX-Trigger", "HX-Refresh", "HX-Retarget", "HX-Reswap"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.SetTrustedProxies(nil)

	// 限制上传文件大小
	router.MaxMultipartMemory = int64(cfg.UploadMaxSizeMB) << 20

	// 并发限制（100并发，避免内存过载）
	concurrencyLimiter := middleware.NewConcurrencyLimiter(100)
	router.Use(concurrencyLimiter.Middleware())

	// 基础监控指标
	router.Use(middleware.Metrics())

	// 速率限制
	authRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime)
	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		authRateLimiter.StopCleanup()
		apiRateLimiter.StopCleanup()
	}

	router.SetHTMLTemplate(deps.Renderer.Template())
	router.StaticFS("/static", render.Static())

	if config.IsDevelopment() {
		pprof.Register(router)
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	RegisterRoutes(router, &RouterDependencies{
		Config:          cfg,
		Database:        deps.Database,
		Cache:           deps.Cache,
		Storage:         deps.Storage,
		Client:          deps.Client,
		Gallery:         deps.Gallery,
		Registry:        deps.Registry,
		AuthRateLimiter: authRateLimiter,
		APIRateLimiter:  apiRateLimiter,
	})

	return router, cleanup
}

// StartServer 创建 http.Server
func StartServer(deps *ServerDependencies) (*http.Server, func()) {
	cfg := deps.Config
	router, clean := setupRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
