package database

import (
	"fmt"

	"gorm.io/gorm"
)

// imageStatsView 图片列表使用的聚合视图
// 评分、收藏、评论数量由子查询计算，上传者昵称取自 user_profiles
const imageStatsView = `CREATE VIEW image_stats AS
SELECT
	i.id,
	i.user_id,
	COALESCE(p.display_name, '') AS owner_name,
	i.storage_path,
	i.title,
	i.filename,
	i.width,
	i.height,
	i.size,
	i.mime_type,
	i.created_at,
	CAST(COALESCE((SELECT AVG(r.rating) FROM ratings r WHERE r.image_id = i.id), 0) AS DOUBLE PRECISION) AS avg_rating,
	(SELECT COUNT(*) FROM ratings r WHERE r.image_id = i.id) AS rating_count,
	(SELECT COUNT(*) FROM favorites f WHERE f.image_id = i.id) AS favorite_count,
	(SELECT COUNT(*) FROM comments c WHERE c.image_id = i.id) AS comment_count
FROM images i
LEFT JOIN user_profiles p ON p.user_id = i.user_id`

// CreateViews 重建视图，表结构变更后需要重新执行
func CreateViews(db *gorm.DB) error {
	if err := db.Exec("DROP VIEW IF EXISTS image_stats").Error; err != nil {
		return fmt.Errorf("failed to drop image_stats view: %w", err)
	}
	if err := db.Exec(imageStatsView).Error; err != nil {
		return fmt.Errorf("failed to create image_stats view: %w", err)
	}
	return nil
}
