// Package remote 是应用与后端（数据库、对象存储、认证）之间唯一的边界。
// 只负责参数整形和错误归一，业务规则留给上层的 manager。
package remote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/storage"
	cryptopackage "github.com/anoixa/image-gallery/utils/crypto"
	"github.com/google/uuid"
)

// Options 认证相关参数
type Options struct {
	JWTSecret         []byte
	AccessTokenTTL    time.Duration
	AutoConfirm       bool
	MinPasswordLength int
	// HashParams 为空时使用 argon2id 默认参数
	HashParams *cryptopackage.Params
}

// OptionsFromConfig 从全局配置构造 Options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		JWTSecret:         []byte(cfg.AuthJWTSecret),
		AccessTokenTTL:    cfg.AuthAccessTokenTTL,
		AutoConfirm:       cfg.AuthAutoConfirm,
		MinPasswordLength: cfg.AuthMinPassword,
	}
}

// Client 远程数据客户端
type Client struct {
	db     database.Provider
	store  storage.Provider
	cache  cache.Provider
	tokens *tokenIssuer
	opts   Options
	now    func() time.Time

	// instanceID 区分广播消息来源，避免处理自己发出的事件
	instanceID string
	hub        *eventHub

	timersMu sync.Mutex
	timers   map[string]*sessionTimer

	relayCancel func()
	closeOnce   sync.Once
}

// New 创建客户端，cache 非空时订阅跨实例的认证事件
func New(db database.Provider, store storage.Provider, c cache.Provider, opts Options) (*Client, error) {
	if db == nil {
		return nil, errors.New("remote: database provider is required")
	}
	if store == nil {
		return nil, errors.New("remote: storage provider is required")
	}
	if len(opts.JWTSecret) < 32 {
		return nil, fmt.Errorf("remote: JWT secret must be at least 32 characters long, got %d", len(opts.JWTSecret))
	}
	if opts.AccessTokenTTL <= 0 {
		opts.AccessTokenTTL = time.Hour
	}
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = 6
	}

	client := &Client{
		db:         db,
		store:      store,
		cache:      c,
		opts:       opts,
		now:        time.Now,
		instanceID: uuid.NewString(),
		hub:        newEventHub(),
		timers:     make(map[string]*sessionTimer),
	}
	client.tokens = newTokenIssuer(opts.JWTSecret, opts.AccessTokenTTL, client.clock)

	if c != nil {
		if err := client.startRelay(); err != nil {
			return nil, err
		}
	}
	return client, nil
}

func (c *Client) clock() time.Time {
	return c.now()
}

// SetClock 替换时间源，仅测试使用
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// Storage 底层存储，文件路由读取对象时使用
func (c *Client) Storage() storage.Provider {
	return c.store
}

// Health 检查数据库与存储
func (c *Client) Health(ctx context.Context) error {
	if err := c.db.Ping(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.store.Health(ctx); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

// Close 停止全部会话计时器与事件转发
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.relayCancel != nil {
			c.relayCancel()
		}

		c.timersMu.Lock()
		for id, t := range c.timers {
			t.timer.Stop()
			delete(c.timers, id)
		}
		c.timersMu.Unlock()

		log.Println("[Remote] Client closed")
	})
}
