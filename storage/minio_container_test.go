//go:build container

package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMinioStorage_Container(t *testing.T) {
	ctx := context.Background()

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "minioadmin",
				"MINIO_ROOT_PASSWORD": "minioadmin",
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	s, err := NewMinioStorage(ctx, MinioConfig{
		Endpoint:     endpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		BucketPrefix: "gallery-",
		ProxyBase:    "http://localhost:8080/files",
	})
	require.NoError(t, err)

	key := "u1/1_a.jpg"
	require.NoError(t, s.Put(ctx, BucketImages, key, strings.NewReader("minio"), 5, "image/jpeg"))

	rc, err := s.Open(ctx, BucketImages, key)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "minio", string(data))

	require.NoError(t, s.Remove(ctx, BucketImages, key))
	ok, err := s.Exists(ctx, BucketImages, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Open(ctx, BucketImages, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
