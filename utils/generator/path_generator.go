package generator

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// maxNameLength 文件名主体的最大长度
const maxNameLength = 64

// uniqueLength 路径中随机段的长度
const uniqueLength = 8

// PathGenerator 对象路径生成器
type PathGenerator struct {
	now func() time.Time
}

// NewPathGenerator 创建路径生成器
func NewPathGenerator() *PathGenerator {
	return &PathGenerator{now: time.Now}
}

// NewPathGeneratorWithClock 使用指定时钟创建（测试用）
func NewPathGeneratorWithClock(now func() time.Time) *PathGenerator {
	return &PathGenerator{now: now}
}

// ImagePath 生成对象路径: {ownerId}/{unixMillis}_{random}_{name}{ext}，图片与头像桶通用
// 同一毫秒内同名上传也不会得到相同路径
func (pg *PathGenerator) ImagePath(ownerID, filename, ext string) string {
	return fmt.Sprintf("%s/%d_%s_%s%s", SanitizeSegment(ownerID), pg.now().UnixMilli(), uniqueSegment(), BaseName(filename), ext)
}

func uniqueSegment() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:uniqueLength]
}

// BaseName 去掉扩展名并清洗文件名
func BaseName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	name = SanitizeSegment(name)
	if name == "" {
		return "image"
	}
	return name
}

// SanitizeSegment 仅保留存储层允许的字符，其余替换为下划线
func SanitizeSegment(s string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-':
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				sb.WriteRune('_')
				lastUnderscore = true
			}
		}
		if sb.Len() >= maxNameLength {
			break
		}
	}
	return strings.Trim(sb.String(), "_")
}
