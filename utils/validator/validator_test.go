package validator

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIsImage_JPEG 测试JPEG图片验证
func TestIsImage_JPEG(t *testing.T) {
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}
	reader := bytes.NewReader(data)

	isValid, mimeType, err := IsImage(reader)
	require.NoError(t, err)
	assert.True(t, isValid)
	assert.Equal(t, "image/jpeg", mimeType)

	pos, _ := reader.Seek(0, io.SeekCurrent)
	assert.Equal(t, int64(0), pos)
}

func TestIsImage_PNG(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

	isValid, mimeType, err := IsImage(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, isValid)
	assert.Equal(t, "image/png", mimeType)
}

func TestIsImage_TIFF(t *testing.T) {
	data := []byte{'I', 'I', 42, 0, 8, 0, 0, 0}

	isValid, mimeType, err := IsImage(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, isValid)
	assert.Equal(t, "image/tiff", mimeType)
}

func TestIsImage_Text(t *testing.T) {
	isValid, mimeType, err := IsImage(strings.NewReader("just some text"))
	require.NoError(t, err)
	assert.False(t, isValid)
	assert.Contains(t, mimeType, "text/plain")
}

func TestIsImage_Empty(t *testing.T) {
	isValid, _, err := IsImage(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.False(t, isValid)
}

func TestNormalizeEmail(t *testing.T) {
	email, err := NormalizeEmail("  Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	for _, bad := range []string{"", "not-an-email", "Bob <bob@example.com>"} {
		_, err := NormalizeEmail(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsWebsiteURL(t *testing.T) {
	assert.True(t, IsWebsiteURL(""))
	assert.True(t, IsWebsiteURL("https://example.com/me"))
	assert.False(t, IsWebsiteURL("javascript:alert(1)"))
	assert.False(t, IsWebsiteURL("example.com"))
}
