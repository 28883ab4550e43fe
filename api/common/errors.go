package common

import (
	"errors"
	"log"
	"net/http"

	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/anoixa/image-gallery/utils"
	"github.com/gin-gonic/gin"
)

// StatusFor 错误分类到 HTTP 状态码
func StatusFor(err error) int {
	if errors.Is(err, apperr.ErrNotFound) {
		return http.StatusNotFound
	}
	switch apperr.KindOf(err) {
	case apperr.KindAuthRequired:
		return http.StatusUnauthorized
	case apperr.KindAuth:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindDecode:
		return http.StatusUnprocessableEntity
	case apperr.KindStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor 给用户看的错误文案
func MessageFor(err error) string {
	if errors.Is(err, apperr.ErrNotFound) {
		return "Not found."
	}
	return apperr.UserMessage(err)
}

// logFailure 只记录服务端错误
func logFailure(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
		return
	}
	utils.LogIfDevf("[API] %s %s: %s", c.Request.Method, c.FullPath(), utils.SanitizeLogMessage(err.Error()))
}

// RespondFailure 以 toast 报告错误，不替换页面内容
func RespondFailure(c *gin.Context, err error) {
	status := StatusFor(err)
	logFailure(c, status, err)
	RespondErrorAbort(c, status, MessageFor(err))
}

// RenderFailure 错误时重新渲染表单，状态码仍然反映错误类型
func RenderFailure(c *gin.Context, err error, name string, data func(msg string) any) {
	status := StatusFor(err)
	logFailure(c, status, err)
	msg := MessageFor(err)
	Toast(c, ToastError, msg)
	c.HTML(status, name, data(msg))
}
