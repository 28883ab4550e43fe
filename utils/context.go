package utils

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"syscall"
)

// IsContextCanceled 检查错误是否是由于上下文取消导致的
func IsContextCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}

	// minio / webdav 的错误有时只保留了文本
	return strings.Contains(err.Error(), "context canceled")
}

// IsClientDisconnect 客户端在响应写完之前断开
func IsClientDisconnect(err error) bool {
	if err == nil {
		return false
	}
	return IsContextCanceled(err) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
