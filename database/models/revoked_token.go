package models

import "time"

// RevokedToken 已注销但尚未过期的访问令牌
type RevokedToken struct {
	TokenID   string    `gorm:"type:varchar(64);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}
