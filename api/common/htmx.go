package common

import (
	"encoding/json"
	"log"

	"github.com/gin-gonic/gin"
)

// htmx 请求/响应头
const (
	HeaderRequest     = "HX-Request"
	HeaderTriggerName = "HX-Trigger-Name"
	HeaderTrigger     = "HX-Trigger"
	HeaderRefresh     = "HX-Refresh"
	HeaderRetarget    = "HX-Retarget"
	HeaderReswap      = "HX-Reswap"
)

// 客户端事件
const (
	EventToast       = "toast"
	EventAuthChanged = "auth-changed"
	EventCloseModal  = "close-modal"
)

const (
	ToastSuccess = "success"
	ToastError   = "error"
)

const triggersKey = "hx_triggers"

// IsHTMX 请求是否来自 htmx
func IsHTMX(c *gin.Context) bool {
	return c.GetHeader(HeaderRequest) == "true"
}

// TriggerName 触发请求的元素 name
func TriggerName(c *gin.Context) string {
	return c.GetHeader(HeaderTriggerName)
}

// Trigger 追加一个客户端事件，必须在写响应体之前调用
func Trigger(c *gin.Context, event string, detail any) {
	triggers, _ := c.Get(triggersKey)
	events, _ := triggers.(map[string]any)
	if events == nil {
		events = make(map[string]any)
		c.Set(triggersKey, events)
	}
	if detail == nil {
		detail = true
	}
	events[event] = detail

	data, err := json.Marshal(events)
	if err != nil {
		log.Printf("[API] failed to encode HX-Trigger: %v", err)
		return
	}
	c.Header(HeaderTrigger, string(data))
}

// Toast 右下角提示
func Toast(c *gin.Context, kind, message string) {
	Trigger(c, EventToast, gin.H{"kind": kind, "message": message})
}

// Refresh 让浏览器整页重新加载
func Refresh(c *gin.Context) {
	c.Header(HeaderRefresh, "true")
}
