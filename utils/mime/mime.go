package mime

import (
	"path/filepath"
	"strings"
)

// 扩展名到 Content-Type 的映射，只收录图库与前端会用到的类型
var types = map[string]string{
	".html":  "text/html; charset=utf-8",
	".htm":   "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".mjs":   "application/javascript; charset=utf-8",
	".json":  "application/json",
	".map":   "application/json",
	".txt":   "text/plain; charset=utf-8",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".png":   "image/png",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".bmp":   "image/bmp",
	".tif":   "image/tiff",
	".tiff":  "image/tiff",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".wasm":  "application/wasm",
}

// TextPlain 开发服务器对未知扩展名的默认类型
const TextPlain = "text/plain; charset=utf-8"

// OctetStream 对象存储中未知扩展名的默认类型
const OctetStream = "application/octet-stream"

// TypeByExtension 按文件扩展名查找 Content-Type，未知时返回 fallback
func TypeByExtension(name, fallback string) string {
	if t, ok := types[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return fallback
}

// IsImageType 是否为图片类型
func IsImageType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
