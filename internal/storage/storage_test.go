package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/config"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/loader"
)

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for key, data := range m.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memoryStorage) DownloadObject(ctx context.Context, key, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, m.objects[key], 0o644)
}

func (m *memoryStorage) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	m.objects[key] = data
	return nil
}

func TestDownloadInputsMissingMovements(t *testing.T) {
	store := &memoryStorage{objects: map[string][]byte{"runs/estoque.csv": []byte("stock")}}

	_, _, err := DownloadInputs(context.Background(), store, "runs/", t.TempDir())
	assert.ErrorIs(t, err, loader.ErrInputNotFound)
}

func TestOutputKey(t *testing.T) {
	assert.Equal(t, "analise.csv", OutputKey("", "analise.csv"))
	assert.Equal(t, "runs/2024-05/analise.csv", OutputKey("runs/2024-05/", "analise.csv"))
}

func TestDownloadInputs(t *testing.T) {
	store := &memoryStorage{objects: map[string][]byte{
		"runs/estoque.csv":    []byte("stock"),
		"runs/movimentos.csv": []byte("movements"),
	}}
	dir := t.TempDir()

	stockPath, movementsPath, err := DownloadInputs(context.Background(), store, "runs/", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(stockPath)
	require.NoError(t, err)
	assert.Equal(t, "stock", string(data))
	assert.Equal(t, filepath.Join(dir, "movimentos.csv"), movementsPath)
}

func TestNormalizeEndpoint(t *testing.T) {
	host, secure := normalizeEndpoint("https://s3.example.com/", false)
	assert.Equal(t, "s3.example.com", host)
	assert.True(t, secure)

	host, secure = normalizeEndpoint("http://minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.False(t, secure)

	host, secure = normalizeEndpoint("minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.True(t, secure)
}

func TestNewMinioClientValidatesConfig(t *testing.T) {
	_, err := NewMinioClient(config.StorageConfig{Bucket: "b"})
	assert.Error(t, err)

	_, err = NewMinioClient(config.StorageConfig{Endpoint: "minio:9000"})
	assert.Error(t, err)

	client, err := NewMinioClient(config.StorageConfig{Endpoint: "minio:9000", Bucket: "estoque", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "estoque", client.bucket)
}
