package models

import "time"

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ImageCategory images 与 categories 的多对多关联
type ImageCategory struct {
	ImageID    string `gorm:"type:varchar(36);primaryKey" json:"image_id"`
	CategoryID uint   `gorm:"primaryKey;index" json:"category_id"`

	Image    *Image    `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"-"`
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ImageCategory) TableName() string {
	return "image_categories"
}
