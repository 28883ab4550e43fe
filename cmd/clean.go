package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/anoixa/image-gallery/storage"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// cleanCmd 清理孤儿记录与孤儿文件
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean orphan image records and storage files",
	Long: `Clean orphan image records and storage files.
This includes:
  - Delete image records whose object is missing from storage
  - Delete stored images and avatars that nothing references (local storage only)
  - Delete sign-out records whose token has already expired`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		dbOnly, _ := cmd.Flags().GetBool("db-only")
		storageOnly, _ := cmd.Flags().GetBool("storage-only")

		if err := runClean(dryRun, dbOnly, storageOnly); err != nil {
			log.Fatalf("Clean failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().Bool("dry-run", false, "Only show what would be cleaned, don't actually delete")
	cleanCmd.Flags().Bool("db-only", false, "Only clean orphan database records")
	cleanCmd.Flags().Bool("storage-only", false, "Only clean orphan storage files")
}

// cleanStats 清理统计信息
type cleanStats struct {
	orphanDBRecords     int // 数据库孤儿记录数
	orphanStorageFiles  int // 存储孤儿文件数
	deletedDBRecords    int // 删除的数据库记录数
	deletedStorageFiles int // 删除的存储文件数
	expiredRevocations  int // 已过期的注销记录数
	errors              []string
}

// runClean 执行清理
func runClean(dryRun, dbOnly, storageOnly bool) error {
	config.InitConfig()
	cfg := config.Get()
	ctx := context.Background()

	factory, err := database.NewFactory(cfg)
	if err != nil {
		return err
	}
	defer factory.Close()

	provider, err := storage.NewProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	db := factory.GetProvider().DB()
	stats := &cleanStats{}

	if !storageOnly {
		if err := cleanOrphanDBRecords(ctx, db, provider, stats, dryRun); err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("clean orphan DB records failed: %v", err))
		}
		if err := pruneRevokedTokens(ctx, db, time.Now(), stats, dryRun); err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("prune revoked tokens failed: %v", err))
		}
	}

	if !dbOnly {
		local, ok := provider.(*storage.LocalStorage)
		if !ok {
			log.Printf("Storage type '%s' does not support orphan file detection yet", provider.Name())
		} else if err := cleanOrphanStorageFiles(db, local, stats, dryRun); err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("clean orphan storage files failed: %v", err))
		}
	}

	printCleanStats(stats, dryRun)

	if len(stats.errors) > 0 {
		return fmt.Errorf("encountered %d errors during cleanup", len(stats.errors))
	}
	return nil
}

// cleanOrphanDBRecords 清理存储中已不存在对象的图片记录
func cleanOrphanDBRecords(ctx context.Context, db *gorm.DB, provider storage.Provider, stats *cleanStats, dryRun bool) error {
	log.Println("Checking for orphan database records...")

	var images []models.Image
	if err := db.WithContext(ctx).Find(&images).Error; err != nil {
		return fmt.Errorf("failed to fetch images: %w", err)
	}

	var orphanIDs []string
	for _, img := range images {
		exists, err := provider.Exists(ctx, storage.BucketImages, img.StoragePath)
		if err != nil {
			log.Printf("Warning: failed to check existence of %s: %v", img.StoragePath, err)
			continue
		}
		if !exists {
			stats.orphanDBRecords++
			orphanIDs = append(orphanIDs, img.ID)
			if dryRun {
				log.Printf("[DRY-RUN] Would delete orphan DB record: ID=%s, Path=%s", img.ID, img.StoragePath)
			}
		}
	}

	if dryRun || len(orphanIDs) == 0 {
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 外键级联在 sqlite 上不一定开启，显式删除关联数据
		for _, model := range []interface{}{&models.ImageCategory{}, &models.Rating{}, &models.Favorite{}, &models.Comment{}} {
			if err := tx.Where("image_id IN ?", orphanIDs).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete related rows: %w", err)
			}
		}
		result := tx.Delete(&models.Image{}, "id IN ?", orphanIDs)
		if result.Error != nil {
			return fmt.Errorf("failed to delete orphan images: %w", result.Error)
		}
		stats.deletedDBRecords = int(result.RowsAffected)
		log.Printf("Deleted %d orphan database records", result.RowsAffected)
		return nil
	})
}

// pruneRevokedTokens 令牌过期后注销记录不再需要
func pruneRevokedTokens(ctx context.Context, db *gorm.DB, now time.Time, stats *cleanStats, dryRun bool) error {
	expired := db.WithContext(ctx).Where("expires_at < ?", now)
	if dryRun {
		var count int64
		if err := expired.Model(&models.RevokedToken{}).Count(&count).Error; err != nil {
			return err
		}
		stats.expiredRevocations = int(count)
		log.Printf("[DRY-RUN] Would delete %d expired revoked tokens", count)
		return nil
	}

	result := expired.Delete(&models.RevokedToken{})
	if result.Error != nil {
		return result.Error
	}
	stats.expiredRevocations = int(result.RowsAffected)
	log.Printf("Deleted %d expired revoked tokens", result.RowsAffected)
	return nil
}

// referencedObjects 数据库中仍被引用的对象，按桶分组
func referencedObjects(db *gorm.DB) (map[string]map[string]bool, error) {
	refs := map[string]map[string]bool{
		storage.BucketImages:  {},
		storage.BucketAvatars: {},
	}

	var paths []string
	if err := db.Model(&models.Image{}).Pluck("storage_path", &paths).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch image paths: %w", err)
	}
	for _, p := range paths {
		refs[storage.BucketImages][p] = true
	}

	// 头像只保存了公开地址，取 /avatars/ 之后的部分
	var avatars []string
	if err := db.Model(&models.Profile{}).Where("avatar_url <> ''").Pluck("avatar_url", &avatars).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch avatar urls: %w", err)
	}
	marker := "/" + storage.BucketAvatars + "/"
	for _, u := range avatars {
		if i := strings.LastIndex(u, marker); i >= 0 {
			refs[storage.BucketAvatars][u[i+len(marker):]] = true
		}
	}
	return refs, nil
}

// cleanOrphanStorageFiles 清理没有任何记录引用的本地文件
func cleanOrphanStorageFiles(db *gorm.DB, local *storage.LocalStorage, stats *cleanStats, dryRun bool) error {
	log.Println("Checking for orphan storage files...")

	refs, err := referencedObjects(db)
	if err != nil {
		return err
	}

	for bucket, known := range refs {
		root := filepath.Join(local.BasePath(), bucket)
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if info.IsDir() {
				return nil
			}

			relPath, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			if known[filepath.ToSlash(relPath)] {
				return nil
			}

			stats.orphanStorageFiles++
			if dryRun {
				log.Printf("[DRY-RUN] Would delete orphan file: %s", path)
				return nil
			}
			if err := os.Remove(path); err != nil {
				log.Printf("Warning: failed to delete orphan file %s: %v", path, err)
			} else {
				stats.deletedStorageFiles++
				log.Printf("Deleted orphan file: %s", path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	return nil
}

// printCleanStats 打印清理统计
func printCleanStats(stats *cleanStats, dryRun bool) {
	fmt.Println()
	fmt.Println("========================================")
	if dryRun {
		fmt.Println("           [DRY RUN MODE]")
	}
	fmt.Println("         Clean Statistics")
	fmt.Println("========================================")
	fmt.Printf("Orphan DB records found:    %d\n", stats.orphanDBRecords)
	fmt.Printf("Orphan storage files found: %d\n", stats.orphanStorageFiles)
	fmt.Printf("DB records deleted:         %d\n", stats.deletedDBRecords)
	fmt.Printf("Storage files deleted:      %d\n", stats.deletedStorageFiles)
	fmt.Printf("Expired revoked tokens:     %d\n", stats.expiredRevocations)
	fmt.Println("========================================")

	if len(stats.errors) > 0 {
		fmt.Println("\nErrors encountered:")
		for _, err := range stats.errors {
			fmt.Printf("  - %s\n", err)
		}
	}
}
