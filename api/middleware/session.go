package middleware

import (
	"net/http"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/anoixa/image-gallery/internal/shell"
	"github.com/anoixa/image-gallery/utils"
	"github.com/gin-gonic/gin"
)

const ContextShellKey = "shell"

// SessionOptions 会话 cookie 参数
type SessionOptions struct {
	CookieName string
	Secure     bool
	// MaxAge 秒，token cookie 的有效期
	MaxAge int
}

func (o SessionOptions) tokenCookie() string {
	return o.CookieName + "_token"
}

// Session 按 cookie 找到或创建浏览器会话
// 新会话会尝试用 token cookie 恢复登录状态
func Session(registry *shell.Registry, opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(opts.CookieName)
		s, created, err := registry.Acquire(id)
		if err != nil {
			common.RespondErrorAbort(c, http.StatusServiceUnavailable, "Server is shutting down")
			return
		}

		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(opts.CookieName, s.ID(), 0, "/", "", opts.Secure, true)

			if token, _ := c.Cookie(opts.tokenCookie()); token != "" {
				if _, err := s.Auth().Restore(c.Request.Context(), token); err != nil {
					utils.LogIfDevf("[Session] restore failed: %v", err)
					ClearToken(c, opts)
				}
			}
			s.MarkRendered()
		} else if common.IsHTMX(c) && s.TakeFullRender() {
			// 身份在别处发生了变化，例如其他设备全局登出或 token 过期
			common.Refresh(c)
		}

		c.Set(ContextShellKey, s)
		c.Next()
	}
}

// ShellFrom 取出当前请求的会话
func ShellFrom(c *gin.Context) *shell.Shell {
	v, ok := c.Get(ContextShellKey)
	if !ok {
		return nil
	}
	s, _ := v.(*shell.Shell)
	return s
}

// StoreToken 登录后记住 access token，重启或会话回收后据此恢复
func StoreToken(c *gin.Context, opts SessionOptions, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(opts.tokenCookie(), token, opts.MaxAge, "/", "", opts.Secure, true)
}

// ClearToken 删除 token cookie
func ClearToken(c *gin.Context, opts SessionOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(opts.tokenCookie(), "", -1, "/", "", opts.Secure, true)
}
