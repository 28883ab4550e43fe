package format

import (
	"fmt"
	"strconv"
)

const byteUnit = 1024

var units = []string{"B", "KB", "MB", "GB", "TB"}

// FileSize 文件大小，1024 进制，保留一位小数
func FileSize(bytes int64) string {
	if bytes < byteUnit {
		return strconv.FormatInt(bytes, 10) + " B"
	}

	div, exp := int64(byteUnit), 1
	for n := bytes / byteUnit; n >= byteUnit && exp < len(units)-1; n /= byteUnit {
		div *= byteUnit
		exp++
	}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}

// Dimensions 宽 × 高，任一为 0 时返回空串
func Dimensions(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	return fmt.Sprintf("%d × %d", width, height)
}
