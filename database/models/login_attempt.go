package models

import "time"

// LoginAttempt 登录尝试记录
type LoginAttempt struct {
	ID        uint      `gorm:"primaryKey"`
	Email     string    `gorm:"type:varchar(255);index;not null"`
	UserID    string    `gorm:"type:varchar(36);index"`
	Success   bool      `gorm:"not null"`
	Reason    string    `gorm:"type:varchar(255)"`
	ClientIP  string    `gorm:"type:varchar(64)"`
	CreatedAt time.Time `gorm:"index"`
}

// AllModels 需要自动迁移的模型（不包括视图）
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&Image{},
		&Rating{},
		&Favorite{},
		&Comment{},
		&Category{},
		&ImageCategory{},
		&LoginAttempt{},
		&RevokedToken{},
	}
}
