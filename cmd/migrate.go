package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/database/models"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// migrateCmd 数据库迁移命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tools",
	Long:  `Create or update the schema, or copy data from one database to another (e.g., SQLite to PostgreSQL).`,
}

// migrateSchemaCmd 建表、建视图并写入分类
var migrateSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create tables, views and seed categories",
	Run: func(cmd *cobra.Command, args []string) {
		seedFile, _ := cmd.Flags().GetString("categories")
		if err := runSchemaMigration(seedFile); err != nil {
			log.Fatalf("Schema migration failed: %v", err)
		}
	},
}

// migrateRunCmd 执行迁移命令
var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Copy gallery data between databases",
	Long: `Copy gallery data from source to target database.

Examples:
  # Migrate from SQLite to PostgreSQL
  image-gallery migrate run --from-sqlite ./data/gallery.db --to-postgres "host=localhost user=postgres password=secret dbname=gallery port=5432"

  # Replace rows that already exist in the target
  image-gallery migrate run --from-sqlite ./data/gallery.db --to-postgres "..." --on-conflict=overwrite

  # Stop on conflict
  image-gallery migrate run --from-sqlite ./data/gallery.db --to-postgres "..." --on-conflict=error`,
	Run: func(cmd *cobra.Command, args []string) {
		fromType, _ := cmd.Flags().GetString("from-type")
		toType, _ := cmd.Flags().GetString("to-type")
		fromDSN, _ := cmd.Flags().GetString("from-dsn")
		toDSN, _ := cmd.Flags().GetString("to-dsn")
		fromSQLite, _ := cmd.Flags().GetString("from-sqlite")
		toPostgres, _ := cmd.Flags().GetString("to-postgres")
		skipConfirm, _ := cmd.Flags().GetBool("yes")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		onConflict, _ := cmd.Flags().GetString("on-conflict")

		if fromSQLite != "" {
			fromType, fromDSN = "sqlite", fromSQLite
		}
		if toPostgres != "" {
			toType, toDSN = "postgres", toPostgres
		}

		opts := migrateOptions{
			fromType:    fromType,
			toType:      toType,
			fromDSN:     fromDSN,
			toDSN:       toDSN,
			skipConfirm: skipConfirm,
			batchSize:   batchSize,
			onConflict:  onConflict,
		}
		if err := runMigration(opts); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateSchemaCmd)
	migrateCmd.AddCommand(migrateRunCmd)

	migrateSchemaCmd.Flags().String("categories", "", "Category seed YAML file (default: category_seed_file from config)")

	migrateRunCmd.Flags().String("from-type", "", "Source database type (sqlite, postgres)")
	migrateRunCmd.Flags().String("to-type", "", "Target database type (sqlite, postgres)")
	migrateRunCmd.Flags().String("from-dsn", "", "Source database DSN/connection string")
	migrateRunCmd.Flags().String("to-dsn", "", "Target database DSN/connection string")
	migrateRunCmd.Flags().String("from-sqlite", "", "Source SQLite file path (shortcut)")
	migrateRunCmd.Flags().String("to-postgres", "", "Target PostgreSQL connection string (shortcut)")
	migrateRunCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	migrateRunCmd.Flags().Int("batch-size", 100, "Batch size for data migration")
	migrateRunCmd.Flags().String("on-conflict", "skip", "Conflict resolution strategy: skip (default), overwrite, error")
}

func runSchemaMigration(seedFile string) error {
	config.InitConfig()
	cfg := config.Get()
	if seedFile == "" {
		seedFile = cfg.CategorySeedFile
	}

	factory, err := database.NewFactory(cfg)
	if err != nil {
		return err
	}
	defer factory.Close()

	if err := factory.AutoMigrate(); err != nil {
		return err
	}

	names, err := config.LoadCategorySeed(seedFile)
	if err != nil {
		return err
	}
	added, err := factory.SeedCategories(context.Background(), names)
	if err != nil {
		return err
	}
	log.Printf("Schema is up to date, %d new categories added", added)
	return nil
}

type migrateOptions struct {
	fromType, toType string
	fromDSN, toDSN   string
	skipConfirm      bool
	batchSize        int
	onConflict       string
}

// migrateStats 迁移统计
type migrateStats struct {
	copied  map[string]int64
	skipped map[string]int64
	errors  []string
}

// migrateTable 一张表的迁移方式，按依赖顺序排列
type migrateTable struct {
	name      string
	model     interface{}
	keys      []string
	batchCopy func(ctx context.Context, source, target *gorm.DB, keys []string, batchSize int, onConflict string) (int64, int64, error)
}

func migrateTables() []migrateTable {
	return []migrateTable{
		{"users", &models.User{}, []string{"id"}, copyTable[models.User]},
		{"profiles", &models.Profile{}, []string{"user_id"}, copyTable[models.Profile]},
		{"categories", &models.Category{}, []string{"id"}, copyTable[models.Category]},
		{"images", &models.Image{}, []string{"id"}, copyTable[models.Image]},
		{"image_categories", &models.ImageCategory{}, []string{"image_id", "category_id"}, copyTable[models.ImageCategory]},
		{"ratings", &models.Rating{}, []string{"id"}, copyTable[models.Rating]},
		{"favorites", &models.Favorite{}, []string{"id"}, copyTable[models.Favorite]},
		{"comments", &models.Comment{}, []string{"id"}, copyTable[models.Comment]},
	}
}

// runMigration 执行数据库迁移
func runMigration(opts migrateOptions) error {
	// 验证冲突处理策略
	if opts.onConflict != "skip" && opts.onConflict != "overwrite" && opts.onConflict != "error" {
		return fmt.Errorf("invalid on-conflict strategy: %s (must be skip, overwrite, or error)", opts.onConflict)
	}
	if opts.fromType == "" || opts.toType == "" {
		return fmt.Errorf("both --from-type and --to-type are required")
	}
	if opts.fromDSN == "" || opts.toDSN == "" {
		return fmt.Errorf("both --from-dsn and --to-dsn (or shortcuts) are required")
	}
	if opts.fromType == opts.toType && opts.fromDSN == opts.toDSN {
		return fmt.Errorf("source and target databases are the same")
	}
	if opts.batchSize <= 0 {
		opts.batchSize = 100
	}

	log.Printf("Migrating from %s to %s", opts.fromType, opts.toType)
	log.Printf("Source: %s", maskDSN(opts.fromDSN))
	log.Printf("Target: %s", maskDSN(opts.toDSN))
	log.Printf("Conflict strategy: %s", opts.onConflict)

	sourceDB, err := openDatabase(opts.fromType, opts.fromDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	sqlDB, _ := sourceDB.DB()
	defer sqlDB.Close()

	targetDB, err := openDatabase(opts.toType, opts.toDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to target database: %w", err)
	}
	sqlDB2, _ := targetDB.DB()
	defer sqlDB2.Close()

	if !opts.skipConfirm {
		fmt.Println("\nWarning: This will copy all gallery data from source to target database.")
		fmt.Printf("Conflict resolution strategy: %s\n", opts.onConflict)
		fmt.Print("Do you want to continue? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Migration cancelled.")
			return nil
		}
	}

	log.Println("Migrating database schema...")
	if err := targetDB.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	if err := database.CreateViews(targetDB); err != nil {
		return err
	}

	stats, err := copyAll(context.Background(), sourceDB, targetDB, opts.batchSize, opts.onConflict)
	printMigrateStats(stats)
	if err != nil {
		return err
	}
	if len(stats.errors) > 0 {
		return fmt.Errorf("migration completed with %d errors", len(stats.errors))
	}

	log.Println("Migration completed successfully!")
	return nil
}

// copyAll 按外键依赖顺序逐表复制
func copyAll(ctx context.Context, sourceDB, targetDB *gorm.DB, batchSize int, onConflict string) (*migrateStats, error) {
	stats := &migrateStats{copied: map[string]int64{}, skipped: map[string]int64{}}

	for _, table := range migrateTables() {
		if !sourceDB.Migrator().HasTable(table.model) {
			log.Printf("Source has no %s table, skipping", table.name)
			continue
		}
		log.Printf("Migrating %s...", table.name)
		copied, skipped, err := table.batchCopy(ctx, sourceDB, targetDB, table.keys, batchSize, onConflict)
		stats.copied[table.name] = copied
		stats.skipped[table.name] = skipped
		if err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("%s migration failed: %v", table.name, err))
			if onConflict == "error" {
				return stats, err
			}
		}
	}
	if targetDB.Dialector.Name() == "postgres" {
		if err := resetSequences(ctx, targetDB); err != nil {
			stats.errors = append(stats.errors, err.Error())
		}
	}
	return stats, nil
}

// resetSequences 显式写入了自增 ID，需要把序列推进到当前最大值
func resetSequences(ctx context.Context, db *gorm.DB) error {
	for _, table := range []string{"categories", "ratings", "favorites", "comments", "login_attempts"} {
		sql := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)", table)
		if err := db.WithContext(ctx).Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}

// copyTable 分批读取并写入目标库，冲突时按策略跳过、覆盖或报错
func copyTable[T any](ctx context.Context, source, target *gorm.DB, keys []string, batchSize int, onConflict string) (int64, int64, error) {
	columns := make([]clause.Column, len(keys))
	for i, k := range keys {
		columns[i] = clause.Column{Name: k}
	}

	conflict := clause.OnConflict{Columns: columns, DoNothing: true}
	if onConflict == "overwrite" {
		conflict = clause.OnConflict{Columns: columns, UpdateAll: true}
	}

	var copied, skipped int64
	var rows []T
	result := source.WithContext(ctx).Omit(clause.Associations).FindInBatches(&rows, batchSize, func(tx *gorm.DB, batch int) error {
		write := target.WithContext(ctx).Omit(clause.Associations)
		if onConflict != "error" {
			write = write.Clauses(conflict)
		}
		res := write.Create(&rows)
		if res.Error != nil {
			return res.Error
		}
		copied += res.RowsAffected
		skipped += int64(len(rows)) - res.RowsAffected
		return nil
	})
	return copied, skipped, result.Error
}

// openDatabase 打开数据库连接
func openDatabase(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "sqlite":
		sqliteDSN := dsn
		if sqliteDSN == "" {
			sqliteDSN = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(sqliteDSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// maskDSN 隐藏敏感信息
func maskDSN(dsn string) string {
	if len(dsn) > 50 {
		return dsn[:50] + "..."
	}
	return dsn
}

// printMigrateStats 打印迁移统计
func printMigrateStats(stats *migrateStats) {
	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("       Migration Statistics")
	fmt.Println("========================================")
	for _, table := range migrateTables() {
		fmt.Printf("%-18s copied: %-6d skipped: %d\n", table.name, stats.copied[table.name], stats.skipped[table.name])
	}
	fmt.Println("========================================")

	if len(stats.errors) > 0 {
		fmt.Println("\nErrors encountered:")
		for _, err := range stats.errors {
			fmt.Printf("  - %s\n", err)
		}
	}
}
