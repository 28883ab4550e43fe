package cache

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/image-gallery/config"
)

// NewProvider 按 cache_type 创建缓存提供者
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.CacheType {
	case "memory", "":
		log.Println("[Cache] Using in-process memory cache")
		return NewMemory(DefaultMemoryConfig())

	case "redis":
		log.Printf("[Cache] Using redis cache at %s", cfg.CacheRedisAddr)
		return NewRedisCache(ctx, RedisConfig{
			Address:  cfg.CacheRedisAddr,
			Password: cfg.CacheRedisPassword,
			DB:       cfg.CacheRedisDB,
			PoolSize: cfg.WorkerCount * 4,
		})

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}
