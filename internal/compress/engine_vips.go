//go:build vips

package compress

import (
	"fmt"
	"sync"

	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/davidbyttow/govips/v2/vips"
)

var vipsStartup sync.Once

func init() {
	registerEngine("vips", func() Engine {
		vipsStartup.Do(func() {
			vips.LoggingSettings(nil, vips.LogLevelError)
			vips.Startup(nil)
		})
		return vipsEngine{}
	})
}

// vipsEngine libvips 实现，需要 cgo 和 -tags vips
type vipsEngine struct{}

func (vipsEngine) Name() string { return "vips" }

func (vipsEngine) Compress(data []byte, opts Options) (*Result, error) {
	img, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, apperr.Decode("compress", err)
	}
	defer img.Close()

	if err := img.AutoRotate(); err != nil {
		return nil, fmt.Errorf("auto rotate: %w", err)
	}

	srcW, srcH := img.Width(), img.Height()
	w, h := FitDimensions(srcW, srcH, opts.MaxDimension)
	if w != srcW || h != srcH {
		longestSrc, longestDst := srcW, w
		if srcH > srcW {
			longestSrc, longestDst = srcH, h
		}
		if err := img.Resize(float64(longestDst)/float64(longestSrc), vips.KernelLanczos3); err != nil {
			return nil, fmt.Errorf("resize: %w", err)
		}
	}

	if img.HasAlpha() {
		if err := img.Flatten(&vips.Color{R: 255, G: 255, B: 255}); err != nil {
			return nil, fmt.Errorf("flatten: %w", err)
		}
	}

	out, _, err := img.ExportJpeg(&vips.JpegExportParams{
		Quality:       opts.Quality,
		StripMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("export jpeg: %w", err)
	}

	return &Result{
		Data:         out,
		Width:        img.Width(),
		Height:       img.Height(),
		SourceWidth:  srcW,
		SourceHeight: srcH,
	}, nil
}
