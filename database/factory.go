package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Factory 数据库工厂 - 负责创建和管理数据库提供者
type Factory struct {
	provider Provider
}

// NewFactory 创建新的数据库工厂
func NewFactory(cfg *config.Config) (*Factory, error) {
	log.Println("[Database] Initializing database provider...")

	provider, err := NewGormProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database provider: %w", err)
	}

	log.Printf("[Database] Provider '%s' initialized successfully", provider.Name())
	return &Factory{provider: provider}, nil
}

// NewFactoryWithProvider 使用已有 provider 构造工厂
func NewFactoryWithProvider(provider Provider) *Factory {
	return &Factory{provider: provider}
}

// GetProvider 获取数据库提供者
func (f *Factory) GetProvider() Provider {
	return f.provider
}

// Close 关闭数据库连接
func (f *Factory) Close() error {
	if f.provider != nil {
		return f.provider.Close()
	}
	return nil
}

// Ping 检查数据库连接
func (f *Factory) Ping() error {
	if f.provider == nil {
		return errors.New("database provider not initialized")
	}
	return f.provider.Ping()
}

// AutoMigrate 迁移表结构并重建视图
func (f *Factory) AutoMigrate() error {
	if f.provider == nil {
		return errors.New("database provider not initialized")
	}

	log.Println("[Database] Running database auto migration...")
	if err := f.provider.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to auto migrate database: %w", err)
	}
	if err := CreateViews(f.provider.DB()); err != nil {
		return err
	}
	log.Println("[Database] Auto migration completed.")
	return nil
}

// SeedCategories 写入缺失的分类，已有分类保持不变
func (f *Factory) SeedCategories(ctx context.Context, names []string) (int, error) {
	if f.provider == nil {
		return 0, errors.New("database provider not initialized")
	}
	return SeedCategories(ctx, f.provider.DB(), names)
}

// SeedCategories 按名称插入分类，冲突时忽略
func SeedCategories(ctx context.Context, db *gorm.DB, names []string) (int, error) {
	rows := make([]models.Category, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		rows = append(rows, models.Category{Name: name})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to seed categories: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}
