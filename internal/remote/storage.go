package remote

import (
	"context"
	"io"

	"github.com/anoixa/image-gallery/internal/apperr"
)

// UploadObject 写入存储桶，失败返回 StorageError
func (c *Client) UploadObject(ctx context.Context, bucket, path string, r io.Reader, size int64, contentType string) error {
	if err := c.store.Put(ctx, bucket, path, r, size, contentType); err != nil {
		return apperr.Storage("upload "+bucket, err)
	}
	return nil
}

// RemoveObject 删除存储对象
func (c *Client) RemoveObject(ctx context.Context, bucket, path string) error {
	if err := c.store.Remove(ctx, bucket, path); err != nil {
		return apperr.Storage("remove "+bucket, err)
	}
	return nil
}

// OpenObject 读取存储对象
func (c *Client) OpenObject(ctx context.Context, bucket, path string) (io.ReadCloser, error) {
	rc, err := c.store.Open(ctx, bucket, path)
	if err != nil {
		return nil, apperr.Storage("open "+bucket, err)
	}
	return rc, nil
}

// PublicURL 对象的公开地址
func (c *Client) PublicURL(bucket, path string) string {
	return c.store.PublicURL(bucket, path)
}
