package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL       string
	Username  string
	Password  string
	RootPath  string
	Timeout   time.Duration
	ProxyBase string
}

// WebDAVStorage WebDAV 存储实现，对象统一经由 /files 路由读取
type WebDAVStorage struct {
	client    *gowebdav.Client
	baseURL   string
	rootPath  string
	proxyBase string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者
func NewWebDAVStorage(ctx context.Context, cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	s := &WebDAVStorage{
		client:    client,
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		rootPath:  normalizeRoot(cfg.RootPath),
		proxyBase: cfg.ProxyBase,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, bucket := range Buckets() {
		dir := s.rootPath + "/" + bucket
		if err := runWithContext(ctx, func() error { return client.MkdirAll(dir, 0755) }); err != nil {
			return nil, fmt.Errorf("webdav connection test failed: %w", err)
		}
	}
	return s, nil
}

func normalizeRoot(root string) string {
	root = strings.Trim(root, "/")
	if root == "" {
		return ""
	}
	return "/" + root
}

// runWithContext gowebdav 不支持 context，超时后放弃等待
func runWithContext(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(bucket, key string) string {
	return s.rootPath + "/" + bucket + "/" + strings.TrimLeft(key, "/")
}

func (s *WebDAVStorage) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	if err := validate(bucket, key); err != nil {
		return err
	}

	fullPath := s.fullPath(bucket, key)
	err := runWithContext(ctx, func() error {
		if err := s.client.MkdirAll(path.Dir(fullPath), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", key, err)
		}
		return s.client.WriteStream(fullPath, r, 0644)
	})
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", key, err)
	}
	return nil
}

func (s *WebDAVStorage) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := validate(bucket, key); err != nil {
		return nil, err
	}

	var rc io.ReadCloser
	err := runWithContext(ctx, func() error {
		var err error
		rc, err = s.client.ReadStream(s.fullPath(bucket, key))
		return err
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read file %s: %w", key, err)
	}
	return rc, nil
}

func (s *WebDAVStorage) Remove(ctx context.Context, bucket, key string) error {
	if err := validate(bucket, key); err != nil {
		return err
	}

	err := runWithContext(ctx, func() error { return s.client.Remove(s.fullPath(bucket, key)) })
	if err != nil && !gowebdav.IsErrNotFound(err) {
		return fmt.Errorf("failed to delete file %s: %w", key, err)
	}
	return nil
}

func (s *WebDAVStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := validate(bucket, key); err != nil {
		return false, err
	}

	var info os.FileInfo
	err := runWithContext(ctx, func() error {
		var err error
		info, err = s.client.Stat(s.fullPath(bucket, key))
		return err
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return info != nil && !info.IsDir(), nil
}

func (s *WebDAVStorage) PublicURL(bucket, key string) string {
	return joinURL(s.proxyBase, bucket, key)
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	return runWithContext(ctx, func() error {
		_, err := s.client.ReadDir(s.rootPath + "/")
		return err
	})
}

func (s *WebDAVStorage) Name() string {
	if s.baseURL == "" {
		return "webdav"
	}
	return fmt.Sprintf("webdav:%s%s", s.baseURL, s.rootPath)
}
