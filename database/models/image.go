package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image 图片元数据，文件本体在 images 存储桶
type Image struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;index:idx_images_user_created,priority:1" json:"user_id"`
	StoragePath string    `gorm:"type:varchar(512);uniqueIndex;not null" json:"storage_path"`
	Title       string    `gorm:"type:varchar(255)" json:"title"`
	Filename    string    `gorm:"type:varchar(255);not null" json:"filename"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Size        int64     `json:"size"`
	MimeType    string    `gorm:"type:varchar(50)" json:"mime_type"`
	CreatedAt   time.Time `gorm:"index:idx_images_user_created,priority:2;index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// ImageStat image_stats 视图的一行
type ImageStat struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	OwnerName     string    `json:"owner_name"`
	StoragePath   string    `json:"storage_path"`
	Title         string    `json:"title"`
	Filename      string    `json:"filename"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	Size          int64     `json:"size"`
	MimeType      string    `json:"mime_type"`
	CreatedAt     time.Time `json:"created_at"`
	AvgRating     float64   `json:"avg_rating"`
	RatingCount   int64     `json:"rating_count"`
	FavoriteCount int64     `json:"favorite_count"`
	CommentCount  int64     `json:"comment_count"`
}

func (ImageStat) TableName() string {
	return "image_stats"
}

// DisplayTitle 标题为空时回退到文件名
func (s *ImageStat) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Filename
}
