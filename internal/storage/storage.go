package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/loader"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the analysis needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}

// DownloadInputs locates the stock and movements objects under prefix and
// downloads them into destDir, returning the local paths.
func DownloadInputs(ctx context.Context, store ObjectStorage, prefix, destDir string) (stockPath, movementsPath string, err error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return "", "", err
	}

	keys := make([]string, len(objects))
	for i, obj := range objects {
		keys[i] = obj.Key
	}

	stockKey, movementsKey, err := loader.MatchInputs(keys)
	if err != nil {
		return "", "", fmt.Errorf("prefix %q: %w", prefix, err)
	}

	stockPath = filepath.Join(destDir, path.Base(stockKey))
	if err := store.DownloadObject(ctx, stockKey, stockPath); err != nil {
		return "", "", err
	}

	movementsPath = filepath.Join(destDir, path.Base(movementsKey))
	if err := store.DownloadObject(ctx, movementsKey, movementsPath); err != nil {
		return "", "", err
	}

	return stockPath, movementsPath, nil
}

// OutputKey joins an export file name onto a prefix.
func OutputKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
