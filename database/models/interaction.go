package models

import "time"

// Rating 每个 (image, user) 至多一条
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ImageID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_ratings_image_user,priority:1" json:"image_id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_ratings_image_user,priority:2;index" json:"user_id"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Image *Image `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"-"`
	User  *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Favorite 记录存在即表示已收藏
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ImageID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_favorites_image_user,priority:1" json:"image_id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_favorites_image_user,priority:2;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Image *Image `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"-"`
	User  *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Comment 图片评论
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ImageID   string    `gorm:"type:varchar(36);not null;index:idx_comments_image_created,priority:1" json:"image_id"`
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_comments_image_created,priority:2" json:"created_at"`

	Image *Image `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"-"`
	User  *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
