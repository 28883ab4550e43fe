package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 认证身份
type User struct {
	ID               string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email            string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"type:varchar(255);not null" json:"-"`
	Role             string     `gorm:"type:varchar(20);not null;default:user" json:"role"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time `json:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// SessionsRevokedAt 全局登出时间（毫秒），不晚于此签发的令牌全部失效
	SessionsRevokedAt int64 `gorm:"not null;default:0" json:"-"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Confirmed 邮箱是否已确认
func (u *User) Confirmed() bool {
	return u != nil && u.EmailConfirmedAt != nil
}

// DisplayName 优先使用资料中的昵称，否则取邮箱前缀
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Profile != nil && strings.TrimSpace(u.Profile.DisplayName) != "" {
		return u.Profile.DisplayName
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// AvatarURL 头像地址
func (u *User) AvatarURL() string {
	if u == nil || u.Profile == nil {
		return ""
	}
	return u.Profile.AvatarURL
}
