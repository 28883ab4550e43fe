package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/config"
	"github.com/spf13/cobra"
)

// cacheCmd 缓存管理命令
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache management commands",
	Long:  "Manage the shared cache. Only meaningful with cache_type=redis, the memory cache lives inside the server process.",
}

// cacheClearCmd 清除缓存命令
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached gallery data",
	Long:  `Clear cached gallery data such as the category list, so that changes made directly in the database become visible.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCacheClear(); err != nil {
			log.Fatalf("Cache clear failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// clearableKeys 可安全清除的缓存键，认证相关的吊销记录不在其中
func clearableKeys() []string {
	return []string{
		cache.Categories.Build("all"),
	}
}

// runCacheClear 执行缓存清理
func runCacheClear() error {
	config.InitConfig()
	cfg := config.Get()

	ctx := context.Background()
	provider, err := cache.NewProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer provider.Close()

	log.Printf("Cache provider: %s", provider.Name())
	if provider.Name() == "memory" {
		log.Println("Memory cache is per-process, nothing to clear from the command line")
		return nil
	}

	return clearKeys(ctx, provider, clearableKeys())
}

func clearKeys(ctx context.Context, provider cache.Provider, keys []string) error {
	for _, key := range keys {
		if err := provider.Delete(ctx, key); err != nil && !cache.IsCacheMiss(err) {
			return fmt.Errorf("failed to delete cache key %s: %w", key, err)
		}
		log.Printf("Cleared %s", key)
	}
	return nil
}
