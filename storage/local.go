package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LocalStorage 本地文件存储实现，每个桶对应一个子目录
type LocalStorage struct {
	absBasePath string
	publicBase  string
}

// NewLocalStorage 创建本地存储提供者
// publicBase 为 /files 路由的外部地址
func NewLocalStorage(basePath, publicBase string) (*LocalStorage, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", basePath, err)
	}

	for _, bucket := range Buckets() {
		if err := os.MkdirAll(filepath.Join(absPath, bucket), 0755); err != nil {
			return nil, fmt.Errorf("failed to create local storage directory '%s': %w", absPath, err)
		}
	}

	testFile := filepath.Join(absPath, ".write_test_"+strconv.FormatInt(time.Now().UnixNano(), 10))
	f, err := os.Create(testFile)
	if err != nil {
		return nil, fmt.Errorf("local storage directory '%s' is not writable: %w", absPath, err)
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	return &LocalStorage{
		absBasePath: absPath + string(os.PathSeparator),
		publicBase:  publicBase,
	}, nil
}

// resolve 将 (bucket, key) 映射为磁盘路径
func (s *LocalStorage) resolve(bucket, key string) (string, error) {
	if err := validate(bucket, key); err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.absBasePath, bucket, filepath.FromSlash(key))
	if !strings.HasPrefix(fullPath, s.absBasePath) {
		return "", &PathError{Bucket: bucket, Key: key, Reason: "invalid file path, potential directory traversal"}
	}
	return fullPath, nil
}

func (s *LocalStorage) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	dstPath, err := s.resolve(bucket, key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", key, err)
	}

	// 先写临时文件再重命名，失败时不留下半截对象
	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create destination file for '%s': %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to copy file content to '%s': %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close file '%s': %w", key, err)
	}
	if err := os.Rename(tmpName, dstPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place '%s': %w", key, err)
	}
	return nil
}

func (s *LocalStorage) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(bucket, key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open file '%s': %w", key, err)
	}
	return file, nil
}

// OpenFile 返回 *os.File，文件路由可直接使用 http.ServeContent
func (s *LocalStorage) OpenFile(bucket, key string) (*os.File, error) {
	fullPath, err := s.resolve(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

func (s *LocalStorage) Remove(ctx context.Context, bucket, key string) error {
	fullPath, err := s.resolve(bucket, key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete local file '%s': %w", fullPath, err)
	}
	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	fullPath, err := s.resolve(bucket, key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LocalStorage) PublicURL(bucket, key string) string {
	return joinURL(s.publicBase, bucket, key)
}

// Health 检查存储健康状态
func (s *LocalStorage) Health(ctx context.Context) error {
	_, err := os.ReadDir(s.absBasePath)
	return err
}

func (s *LocalStorage) Name() string {
	return "local"
}

// BasePath 返回存储的基础路径
func (s *LocalStorage) BasePath() string {
	return s.absBasePath
}
