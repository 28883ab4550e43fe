package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"
)

func TestIsContextCanceled(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "direct context.Canceled",
			err:      context.Canceled,
			expected: true,
		},
		{
			name:     "wrapped context.Canceled",
			err:      fmt.Errorf("wrapped: %w", context.Canceled),
			expected: true,
		},
		{
			name:     "string contains context canceled",
			err:      errors.New("Head \"http://example.com\": context canceled"),
			expected: true,
		},
		{
			name:     "storage wrapped error",
			err:      errors.New("failed to open object images/u/1_a.jpg: Get \"http://minio:9000/gallery-images/u/1_a.jpg\": context canceled"),
			expected: true,
		},
		{
			name:     "other error",
			err:      errors.New("some other error"),
			expected: false,
		},
		{
			name:     "context.DeadlineExceeded (not canceled)",
			err:      context.DeadlineExceeded,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsContextCanceled(tt.err)
			if result != tt.expected {
				t.Errorf("IsContextCanceled(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestIsClientDisconnect(t *testing.T) {
	for _, err := range []error{
		context.Canceled,
		syscall.EPIPE,
		fmt.Errorf("write tcp 127.0.0.1:8080: %w", syscall.ECONNRESET),
		io.ErrClosedPipe,
	} {
		if !IsClientDisconnect(err) {
			t.Errorf("IsClientDisconnect(%v) = false, want true", err)
		}
	}
	for _, err := range []error{nil, errors.New("other error"), context.DeadlineExceeded} {
		if IsClientDisconnect(err) {
			t.Errorf("IsClientDisconnect(%v) = true, want false", err)
		}
	}
}
