package core

import (
	"net/http"
	"runtime"
	"time"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/anoixa/image-gallery/api/handler/account"
	"github.com/anoixa/image-gallery/api/handler/files"
	handlerGallery "github.com/anoixa/image-gallery/api/handler/gallery"
	handlerImages "github.com/anoixa/image-gallery/api/handler/images"
	"github.com/anoixa/image-gallery/api/middleware"
	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/internal/gallery"
	"github.com/anoixa/image-gallery/internal/remote"
	"github.com/anoixa/image-gallery/internal/shell"
	"github.com/anoixa/image-gallery/storage"
	"github.com/gin-gonic/gin"
)

// RouterDependencies 路由注册依赖
type RouterDependencies struct {
	Config          *config.Config
	Database        database.Provider
	Cache           cache.Provider
	Storage         storage.Provider
	Client          *remote.Client
	Gallery         *gallery.Service
	Registry        *shell.Registry
	AuthRateLimiter *middleware.IPRateLimiter
	APIRateLimiter  *middleware.IPRateLimiter
}

// SessionOptions 由配置得到会话 cookie 参数
func SessionOptions(cfg *config.Config) middleware.SessionOptions {
	return middleware.SessionOptions{
		CookieName: cfg.SessionCookieName,
		Secure:     cfg.SessionCookieSecure,
		MaxAge:     int(cfg.AuthAccessTokenTTL.Seconds()),
	}
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, deps *RouterDependencies) {
	// 基础路由
	registerBasicRoutes(router, deps)

	// 对象文件
	registerFileRoutes(router, deps)

	// 页面与 htmx 片段
	registerPageRoutes(router, deps)
}

// registerBasicRoutes 注册基础路由
func registerBasicRoutes(router *gin.Engine, deps *RouterDependencies) {
	healthHandler := NewHealthHandler(deps.Database, deps.Cache, deps.Storage)
	router.GET("/health", healthHandler.Handle)

	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})

	router.GET("/metrics", func(context *gin.Context) {
		context.JSON(http.StatusOK, middleware.GetMetrics())
	})
}

func registerFileRoutes(router *gin.Engine, deps *RouterDependencies) {
	fileHandler := files.NewHandler(deps.Storage)
	router.GET("/files/:bucket/*key", fileHandler.Serve)
	router.HEAD("/files/:bucket/*key", fileHandler.Serve)
}

const uploadWaitTimeout = 15 * time.Second

// registerPageRoutes 所有页面路由都挂在会话中间件之后
func registerPageRoutes(router *gin.Engine, deps *RouterDependencies) {
	cfg := deps.Config
	session := SessionOptions(cfg)

	galleryHandler := handlerGallery.NewHandler(deps.Gallery, config.Version)
	accountHandler := account.NewHandler(session, cfg.UploadMaxSizeMB)
	imageHandler := handlerImages.NewHandler(deps.Gallery, cfg.UploadMaxSizeMB)

	// 上传请求体上限，留出 multipart 头部的余量
	uploadLimit := int64(cfg.UploadMaxSizeMB+1) << 20
	// 压缩占满 CPU，同时处理的上传数不超过核数
	compressLimit := middleware.NewConcurrencyLimiter(int64(runtime.NumCPU())).MiddlewareWithBlock(uploadWaitTimeout)

	pages := router.Group("/")
	pages.Use(middleware.NoStore())
	pages.Use(middleware.Session(deps.Registry, session))
	{
		pages.GET("/", galleryHandler.Index)
		pages.GET("/header", galleryHandler.Header)
		pages.GET("/categories/suggest", galleryHandler.SuggestCategories)
		pages.GET("/search/suggest", galleryHandler.SearchSuggestions)

		galleryGroup := pages.Group("/gallery")
		galleryGroup.Use(deps.APIRateLimiter.Middleware())
		{
			galleryGroup.GET("", galleryHandler.Grid)
			galleryGroup.GET("/more", galleryHandler.More)
		}

		authGroup := pages.Group("/auth")
		{
			authGroup.GET("/modal", accountHandler.AuthModal)
			authGroup.POST("/login", deps.AuthRateLimiter.Middleware(), accountHandler.Login)
			authGroup.POST("/register", deps.AuthRateLimiter.Middleware(), accountHandler.Register)
			authGroup.POST("/logout", accountHandler.Logout)
		}

		profileGroup := pages.Group("/profile")
		profileGroup.Use(middleware.RequireUser())
		{
			profileGroup.GET("", accountHandler.Profile)
			profileGroup.POST("", accountHandler.UpdateProfile)
			profileGroup.POST("/avatar", middleware.MaxBytes(uploadLimit), compressLimit, accountHandler.UploadAvatar)
		}

		imagesGroup := pages.Group("/images")
		imagesGroup.Use(deps.APIRateLimiter.Middleware())
		{
			imagesGroup.GET("/:id", imageHandler.Detail)

			owned := imagesGroup.Group("")
			owned.Use(middleware.RequireUser())
			{
				owned.GET("/new", imageHandler.NewForm)
				owned.POST("", middleware.MaxBytes(uploadLimit), compressLimit, imageHandler.Upload)
				owned.POST("/:id/rating", imageHandler.Rate)
				owned.POST("/:id/favorite", imageHandler.ToggleFavorite)
				owned.POST("/:id/comments", imageHandler.AddComment)
				owned.PATCH("/:id", imageHandler.UpdateTitle)
				owned.DELETE("/:id", imageHandler.Delete)
			}
		}

		pages.DELETE("/comments/:id", middleware.RequireUser(), imageHandler.DeleteComment)
	}
}
