package middleware

import (
	"net/http"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/gin-gonic/gin"
)

// RequireUser 匿名会话直接返回 401 和登录提示
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := ShellFrom(c)
		if s == nil {
			common.RespondErrorAbort(c, http.StatusInternalServerError, "Session is not available")
			return
		}
		if s.Auth().CurrentUser() == nil {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Please sign in first.")
			return
		}
		c.Next()
	}
}

// NoStore 动态片段禁止缓存
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// MaxBytes 限制请求体大小
func MaxBytes(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
