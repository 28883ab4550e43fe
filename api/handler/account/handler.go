package account

import (
	"github.com/anoixa/image-gallery/api/middleware"
)

// Handler 登录、注册与个人资料
type Handler struct {
	session        middleware.SessionOptions
	maxAvatarBytes int64
}

// NewHandler 账户处理器
func NewHandler(session middleware.SessionOptions, maxAvatarMB int) *Handler {
	if maxAvatarMB <= 0 {
		maxAvatarMB = 5
	}
	return &Handler{
		session:        session,
		maxAvatarBytes: int64(maxAvatarMB) << 20,
	}
}
