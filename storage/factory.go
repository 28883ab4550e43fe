package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/image-gallery/config"
)

// NewProvider 按 storage_type 创建存储提供者
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	proxyBase := cfg.BaseURL() + "/files"

	log.Printf("[Storage] Initializing storage, type: %s", cfg.StorageType)

	switch cfg.StorageType {
	case "local", "":
		publicBase := cfg.StoragePublicURL
		if publicBase == "" {
			publicBase = proxyBase
		}
		return NewLocalStorage(cfg.StorageLocalPath, publicBase)

	case "minio", "s3":
		return NewMinioStorage(ctx, MinioConfig{
			Endpoint:     cfg.StorageMinioEndpoint,
			AccessKey:    cfg.StorageMinioAccessKey,
			SecretKey:    cfg.StorageMinioSecretKey,
			UseSSL:       cfg.StorageMinioUseSSL,
			BucketPrefix: cfg.StorageMinioBucketPrefix,
			PublicURL:    cfg.StoragePublicURL,
			ProxyBase:    proxyBase,
		})

	case "webdav":
		return NewWebDAVStorage(ctx, WebDAVConfig{
			URL:       cfg.StorageWebDAVURL,
			Username:  cfg.StorageWebDAVUsername,
			Password:  cfg.StorageWebDAVPassword,
			RootPath:  cfg.StorageWebDAVRootPath,
			ProxyBase: proxyBase,
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}
