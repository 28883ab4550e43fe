package validator

import (
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
)

// allowedImageMimeTypes Allowed image types
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/tiff": true,
}

// IsImage Verify if the file content is an allowed image type.
// 读取后会把 reader 复位到开头
func IsImage(file io.ReadSeeker) (bool, string, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return false, "", err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false, "", err
	}

	mimeType := http.DetectContentType(buffer[:n])
	// DetectContentType 不识别 tiff
	if mimeType == "application/octet-stream" && n >= 4 && isTIFF(buffer[:4]) {
		mimeType = "image/tiff"
	}

	return allowedImageMimeTypes[mimeType], mimeType, nil
}

func isTIFF(head []byte) bool {
	return (head[0] == 'I' && head[1] == 'I' && head[2] == 42 && head[3] == 0) ||
		(head[0] == 'M' && head[1] == 'M' && head[2] == 0 && head[3] == 42)
}

// NormalizeEmail 标准化并校验邮箱
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email address")
	}
	return email, nil
}

// IsWebsiteURL 校验个人主页地址，空字符串视为合法
func IsWebsiteURL(raw string) bool {
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
