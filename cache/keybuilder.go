package cache

import (
	"fmt"
	"strings"
)

// KeyBuilder 缓存键构建器
type KeyBuilder struct {
	prefix string
	sep    string
}

// NewKeyBuilder 创建新的键构建器
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
		sep:    ":",
	}
}

// Build 构建缓存键
func (kb *KeyBuilder) Build(parts ...string) string {
	if len(parts) == 0 {
		return kb.prefix
	}
	return kb.prefix + kb.sep + strings.Join(parts, kb.sep)
}

// BuildID 构建带 ID 的缓存键
func (kb *KeyBuilder) BuildID(id interface{}) string {
	return fmt.Sprintf("%s%s%v", kb.prefix, kb.sep, id)
}

var (
	// RevokedToken 已注销的访问令牌（按 jti），数据库 revoked_tokens 的读缓存
	RevokedToken = NewKeyBuilder("auth:revoked")

	// Categories 分类列表
	Categories = NewKeyBuilder("gallery:categories")
)

// AuthEventsChannel 认证事件广播频道
const AuthEventsChannel = "gallery:auth-events"
