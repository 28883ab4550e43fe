// Package dbtest 为测试提供独立的内存 SQLite 数据库
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/anoixa/image-gallery/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 每个测试使用独立命名的内存库，已完成迁移与视图创建
func Open(t testing.TB) *database.GormProvider {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 共享缓存下多连接会出现 table is locked
	sqlDB.SetMaxOpenConns(1)

	provider := database.NewGormProviderFromDB(db, "sqlite")
	factory := database.NewFactoryWithProvider(provider)
	require.NoError(t, factory.AutoMigrate())

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return provider
}

// OpenSeeded 额外写入给定分类
func OpenSeeded(t testing.TB, categories ...string) *database.GormProvider {
	t.Helper()
	provider := Open(t)
	_, err := database.SeedCategories(t.Context(), provider.DB(), categories)
	require.NoError(t, err)
	return provider
}
