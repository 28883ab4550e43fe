package models

import "time"

// Profile 用户资料扩展
type Profile struct {
	UserID      string    `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	DisplayName string    `gorm:"type:varchar(100)" json:"display_name"`
	AvatarURL   string    `gorm:"type:varchar(1024)" json:"avatar_url"`
	Bio         string    `gorm:"type:text" json:"bio"`
	Website     string    `gorm:"type:varchar(255)" json:"website"`
	Location    string    `gorm:"type:varchar(100)" json:"location"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "user_profiles"
}
