package compress

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/anoixa/image-gallery/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x += 7 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodeTransparentPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeConfig(t *testing.T, data []byte) image.Config {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	return cfg
}

// 4000x3000 按 1400 压缩，最长边不超过 1400 且等比
func TestCompress_LargeLandscape(t *testing.T) {
	c := Default()
	res, err := c.Compress(bytes.NewReader(encodeJPEG(t, 4000, 3000)), Options{MaxDimension: 1400, Quality: 75})
	require.NoError(t, err)

	cfg := decodeConfig(t, res.Data)
	assert.Equal(t, 1400, cfg.Width)
	assert.Equal(t, 1050, cfg.Height)
	assert.Equal(t, 4000, res.SourceWidth)
	assert.Equal(t, 3000, res.SourceHeight)
	assert.Equal(t, "image/jpeg", res.ContentType())
}

func TestCompress_Portrait(t *testing.T) {
	c := Default()
	res, err := c.Compress(bytes.NewReader(encodeJPEG(t, 900, 1600)), Options{MaxDimension: 400, Quality: 80})
	require.NoError(t, err)

	cfg := decodeConfig(t, res.Data)
	assert.LessOrEqual(t, cfg.Height, 400)
	assert.InDelta(t, 900.0/1600.0, float64(cfg.Width)/float64(cfg.Height), 0.01)
}

// 尺寸已在范围内时仍然重新编码为 JPEG，但不放大
func TestCompress_SmallImageIsReencodedNotUpscaled(t *testing.T) {
	c := Default()
	res, err := c.Compress(bytes.NewReader(encodeTransparentPNG(t, 120, 80)), Options{MaxDimension: 1600})
	require.NoError(t, err)

	cfg := decodeConfig(t, res.Data)
	assert.Equal(t, 120, cfg.Width)
	assert.Equal(t, 80, cfg.Height)
}

func TestCompress_DecodeError(t *testing.T) {
	c := Default()

	_, err := c.Compress(strings.NewReader("definitely not an image"), Options{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindDecode))

	_, err = c.Compress(bytes.NewReader(nil), Options{})
	assert.True(t, apperr.IsKind(err, apperr.KindDecode))
}

// pngHeader 只有签名和 IHDR 的 PNG，声明任意尺寸
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestCompress_PixelLimit(t *testing.T) {
	c := Default()

	bomb := pngHeader(8000, 8000)
	require.Less(t, len(bomb), 64)
	_, err := c.Compress(bytes.NewReader(bomb), Options{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindDecode))
	assert.Contains(t, err.Error(), "pixel limit")

	_, err = c.Compress(bytes.NewReader(encodeJPEG(t, 300, 200)), Options{MaxPixels: 50000})
	assert.True(t, apperr.IsKind(err, apperr.KindDecode))

	res, err := c.Compress(bytes.NewReader(encodeJPEG(t, 300, 200)), Options{MaxPixels: 60000})
	require.NoError(t, err)
	assert.Equal(t, 300, res.Width)
}

func TestNew_UnknownEngine(t *testing.T) {
	_, err := New("magick")
	assert.Error(t, err)
	assert.Contains(t, Engines(), "imaging")
}

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		w, h, maxDim int
		wantW, wantH int
	}{
		{4000, 3000, 1400, 1400, 1050},
		{3000, 4000, 1400, 1050, 1400},
		{1600, 1600, 200, 200, 200},
		{800, 600, 1600, 800, 600},
		{10000, 10, 100, 100, 1},
		{0, 0, 100, 0, 0},
	}

	for _, tt := range tests {
		w, h := FitDimensions(tt.w, tt.h, tt.maxDim)
		assert.Equal(t, tt.wantW, w, "%dx%d -> %d", tt.w, tt.h, tt.maxDim)
		assert.Equal(t, tt.wantH, h, "%dx%d -> %d", tt.w, tt.h, tt.maxDim)
		if tt.w > 0 && w > 1 && h > 1 {
			assert.LessOrEqual(t, math.Abs(float64(tt.w)/float64(tt.h)-float64(w)/float64(h)), 0.02)
		}
	}
}
