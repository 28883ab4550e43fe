package format

import (
	"testing"
)

func TestFileSize(t *testing.T) {
	tests := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{"zero", 0, "0 B"},
		{"bytes", 512, "512 B"},
		{"kilobytes", 1536, "1.5 KB"},
		{"megabytes", 1048576, "1.0 MB"},
		{"gigabytes", 1105197056, "1.0 GB"},
		{"capped at terabytes", 3 << 50, "3072.0 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileSize(tt.bytes); got != tt.expected {
				t.Errorf("FileSize(%d) = %s, want %s", tt.bytes, got, tt.expected)
			}
		})
	}
}

func TestDimensions(t *testing.T) {
	if got := Dimensions(1920, 1080); got != "1920 × 1080" {
		t.Errorf("Dimensions(1920, 1080) = %q", got)
	}
	if got := Dimensions(0, 1080); got != "" {
		t.Errorf("Dimensions(0, 1080) = %q, want empty", got)
	}
}
