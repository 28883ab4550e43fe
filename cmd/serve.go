package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anoixa/image-gallery/api/core"
	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/internal/di"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gallery web server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()

	if err := os.MkdirAll("./data", os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	container := di.NewContainer(cfg)
	if err := container.Init(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	InitDatabase(container)

	// 创建服务器依赖
	deps := &core.ServerDependencies{
		Config:   cfg,
		Database: container.GetDatabaseProvider(),
		Cache:    container.GetCache(),
		Storage:  container.GetStorage(),
		Client:   container.GetRemoteClient(),
		Gallery:  container.GetGallery(),
		Registry: container.GetRegistry(),
		Renderer: container.GetRenderer(),
	}

	// 启动gin
	server, cleanup := core.StartServer(deps)
	go func() {
		log.Printf("Server started on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 先停止接收请求，再释放会话与后台任务
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if cleanup != nil {
		cleanup()
		log.Println("Cleanup tasks finished.")
	}

	// 关闭 DI 容器
	if err := container.Close(); err != nil {
		log.Printf("Error closing container: %v", err)
	}

	log.Println("Server exited successfully")
}

// InitDatabase 自动迁移表结构并写入缺失的分类
func InitDatabase(container *di.Container) {
	factory := container.GetDatabaseFactory()
	log.Printf("Initializing database, database type: %s", factory.GetProvider().Name())

	// 自动DDL
	if err := factory.AutoMigrate(); err != nil {
		log.Fatalf("Failed to auto migrate database: %v", err)
	}

	cfg := container.GetConfig()
	names, err := config.LoadCategorySeed(cfg.CategorySeedFile)
	if err != nil {
		log.Fatalf("Failed to load category seed: %v", err)
	}
	added, err := factory.SeedCategories(context.Background(), names)
	if err != nil {
		log.Fatalf("Failed to seed categories: %v", err)
	}
	if added > 0 {
		log.Printf("Seeded %d categories", added)
	}

	log.Println("Database initialized successfully")
}
