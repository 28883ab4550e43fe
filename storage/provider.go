package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// 存储桶
const (
	BucketImages  = "images"
	BucketAvatars = "avatars"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("storage: object not found")

// Buckets 应用使用的全部存储桶
func Buckets() []string {
	return []string{BucketImages, BucketAvatars}
}

// Provider 存储提供者接口
// 对象以 (bucket, key) 定位，key 为 "/" 分隔的相对路径
type Provider interface {
	// Put 写入对象，size 未知时传 -1
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error

	// Open 读取对象，不存在时返回 ErrObjectNotFound
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Remove 删除对象，对象不存在不视为错误
	Remove(ctx context.Context, bucket, key string) error

	Exists(ctx context.Context, bucket, key string) (bool, error)

	// PublicURL 对象的公开访问地址
	PublicURL(bucket, key string) string

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	Name() string
}

// IsValidBucket 只接受已知存储桶
func IsValidBucket(bucket string) bool {
	for _, b := range Buckets() {
		if b == bucket {
			return true
		}
	}
	return false
}

// IsValidStoragePath 校验对象路径是否合法
func IsValidStoragePath(path string) bool {
	if path == "" {
		return false
	}

	// 不允许绝对路径
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return false
	}

	// 防止目录遍历
	if strings.Contains(path, "..") {
		return false
	}

	// 只允许安全字符
	for _, r := range path {
		if (r < 'a' || r > 'z') &&
			(r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') &&
			r != '-' && r != '_' && r != '.' && r != '/' {
			return false
		}
	}

	return true
}

func validate(bucket, key string) error {
	if !IsValidBucket(bucket) {
		return &PathError{Bucket: bucket, Key: key, Reason: "unknown bucket"}
	}
	if !IsValidStoragePath(key) {
		return &PathError{Bucket: bucket, Key: key, Reason: "invalid storage path"}
	}
	return nil
}

// PathError 非法的桶或路径
type PathError struct {
	Bucket string
	Key    string
	Reason string
}

func (e *PathError) Error() string {
	return "storage: " + e.Reason + ": " + e.Bucket + "/" + e.Key
}

func joinURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + key
}
