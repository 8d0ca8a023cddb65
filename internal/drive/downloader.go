package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/loader"
)

// fileAPI is the part of Service the downloader needs.
type fileAPI interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, file *File, w io.Writer) error
}

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
}

// Downloader wraps Service to download the analysis inputs from a folder.
type Downloader struct {
	service fileAPI
}

// NewDownloader creates a new Downloader.
func NewDownloader(s *Service) *Downloader {
	return &Downloader{service: s}
}

// DownloadInputs finds the newest stock and movements files in the folder and
// downloads them into DownloadDir. Native spreadsheets are exported as xlsx.
func (d *Downloader) DownloadInputs(ctx context.Context, opts DownloadOptions) (stockPath, movementsPath string, err error) {
	if opts.DownloadDir == "" {
		return "", "", fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.service.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return "", "", err
	}

	byName := make(map[string]*File, len(files))
	names := make([]string, 0, len(files))
	for _, f := range files {
		name := f.LocalName()
		if _, seen := byName[name]; seen {
			continue
		}
		byName[name] = f
		names = append(names, name)
	}

	stockName, movementsName, err := loader.MatchInputs(names)
	if err != nil {
		return "", "", fmt.Errorf("folder %s: %w", opts.FolderID, err)
	}

	if stockPath, err = d.download(ctx, byName[stockName], opts.DownloadDir); err != nil {
		return "", "", err
	}
	if movementsPath, err = d.download(ctx, byName[movementsName], opts.DownloadDir); err != nil {
		return "", "", err
	}
	return stockPath, movementsPath, nil
}

func (d *Downloader) download(ctx context.Context, f *File, dir string) (string, error) {
	localPath := filepath.Join(dir, filepath.Base(f.LocalName()))
	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	if err := d.service.DownloadFile(ctx, f, out); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return localPath, nil
}
