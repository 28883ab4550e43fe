package cache

import (
	"context"
	"errors"
	"time"
)

// Provider 缓存提供者接口
type Provider interface {
	// Set 设置缓存项，expiration 为 0 表示不过期
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Get 获取缓存项，未命中返回 ErrCacheMiss
	Get(ctx context.Context, key string, dest interface{}) error

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// Publish 向频道广播消息，多实例部署时由 redis 转发
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe 订阅频道，返回的函数用于取消订阅
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)

	Close() error

	Name() string
}

// ErrCacheMiss 缓存未命中错误
var ErrCacheMiss = errors.New("cache miss")

// ErrCacheRejected 缓存拒绝了写入，值不会被保存
var ErrCacheRejected = errors.New("cache rejected the write")

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
