// Package compress downsizes uploaded images and re-encodes them as JPEG.
package compress

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/anoixa/image-gallery/internal/apperr"
)

const (
	// ContentType 输出格式固定为 JPEG
	ContentType = "image/jpeg"
	// Extension 输出文件扩展名
	Extension = ".jpg"

	DefaultMaxDimension = 1600
	DefaultQuality      = 75
	// DefaultMaxPixels 解码前的像素上限（约 5000 万像素）
	DefaultMaxPixels    = 50_000_000
)

// Options 压缩参数
type Options struct {
	MaxDimension int // 最长边上限
	Quality      int // JPEG 质量 1-100
	MaxPixels    int // 源图像素上限，超出时不解码
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	return o
}

// Result 压缩结果
type Result struct {
	Data         []byte
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
}

// ContentType 返回输出 MIME
func (r *Result) ContentType() string { return ContentType }

// Reader 返回结果数据的 reader
func (r *Result) Reader() io.Reader { return bytes.NewReader(r.Data) }

// Engine 图片处理引擎
type Engine interface {
	Name() string
	Compress(data []byte, opts Options) (*Result, error)
}

var (
	enginesMu sync.RWMutex
	engines   = make(map[string]func() Engine)
)

func registerEngine(name string, factory func() Engine) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[name] = factory
}

// Engines 返回已编译进来的引擎名称
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compressor 压缩器
type Compressor struct {
	engine Engine
}

// New 按名称创建压缩器，空名称使用 imaging
func New(engineName string) (*Compressor, error) {
	if engineName == "" {
		engineName = "imaging"
	}
	enginesMu.RLock()
	factory, ok := engines[strings.ToLower(engineName)]
	enginesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("compress engine %q is not available (compiled: %s)", engineName, strings.Join(Engines(), ", "))
	}
	return &Compressor{engine: factory()}, nil
}

// Default 返回 imaging 引擎的压缩器
func Default() *Compressor {
	c, err := New("imaging")
	if err != nil {
		panic(err)
	}
	return c
}

// EngineName 当前引擎名称
func (c *Compressor) EngineName() string {
	return c.engine.Name()
}

// Compress 读取整个输入并压缩，解码失败返回 DecodeError
func (c *Compressor) Compress(r io.Reader, opts Options) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Decode("compress", fmt.Errorf("read source: %w", err))
	}
	if len(data) == 0 {
		return nil, apperr.Decode("compress", fmt.Errorf("empty file"))
	}
	opts = opts.withDefaults()
	if err := checkPixels(data, opts.MaxPixels); err != nil {
		return nil, err
	}
	return c.engine.Compress(data, opts)
}

// checkPixels 只读取图片头部的尺寸，防止小文件声明超大分辨率
// 头部无法识别时交给引擎判断
func checkPixels(data []byte, maxPixels int) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return apperr.Decode("compress", fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height))
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return apperr.Decode("compress", fmt.Errorf("image is %dx%d, exceeds the %d pixel limit", cfg.Width, cfg.Height, maxPixels))
	}
	return nil
}

// FitDimensions 计算等比缩放后的尺寸，从不放大
func FitDimensions(width, height, maxDimension int) (int, int) {
	if width <= 0 || height <= 0 || maxDimension <= 0 {
		return width, height
	}
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= maxDimension {
		return width, height
	}

	scale := float64(maxDimension) / float64(longest)
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w > maxDimension {
		w = maxDimension
	}
	if h > maxDimension {
		h = maxDimension
	}
	return w, h
}
