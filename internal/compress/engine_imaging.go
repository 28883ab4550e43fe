package compress

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	// 额外解码器
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/anoixa/image-gallery/utils/pool"
	"github.com/disintegration/imaging"
)

func init() {
	registerEngine("imaging", func() Engine { return imagingEngine{} })
}

// imagingEngine 纯 Go 实现
type imagingEngine struct{}

func (imagingEngine) Name() string { return "imaging" }

func (imagingEngine) Compress(data []byte, opts Options) (*Result, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.Decode("compress", err)
	}

	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	w, h := FitDimensions(srcW, srcH, opts.MaxDimension)

	var dst image.Image = src
	if w != srcW || h != srcH {
		dst = imaging.Resize(src, w, h, imaging.Lanczos)
	}

	// JPEG 不支持透明通道，铺白底
	flat := imaging.New(w, h, color.White)
	flat = imaging.Overlay(flat, dst, image.Pt(0, 0), 1.0)

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if err := imaging.Encode(buf, flat, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())

	return &Result{
		Data:         out,
		Width:        w,
		Height:       h,
		SourceWidth:  srcW,
		SourceHeight: srcH,
	}, nil
}
