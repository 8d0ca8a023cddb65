package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/config"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/drive"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/loader"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/storage"
	"github.com/andresuchdata/stock-dashboard/backend-go/pkg/logger"
)

func fileSource(c *cli.Context) pipeline.Source {
	return &loader.FileSource{
		StockPath:     c.String("stock"),
		MovementsPath: c.String("movements"),
	}
}

func storageSource(c *cli.Context, cfg *config.Config) (pipeline.Source, error) {
	if !cfg.Storage.Configured() {
		return nil, fmt.Errorf("storage is not configured: set STORAGE_ENDPOINT and STORAGE_BUCKET")
	}
	client, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		return nil, err
	}

	prefix := c.String("prefix")
	dir := c.String("download-dir")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure download dir %s: %w", dir, err)
	}

	return pipeline.SourceFunc{
		Label: "storage",
		Fn: func(ctx context.Context) (*pipeline.Inputs, error) {
			stockPath, movementsPath, err := storage.DownloadInputs(ctx, client, prefix, dir)
			if err != nil {
				return nil, err
			}
			logger.Log.Info().Str("stock", stockPath).Str("movements", movementsPath).Msg("Downloaded inputs from storage")
			return loader.LoadInputs(ctx, stockPath, movementsPath)
		},
	}, nil
}

func driveSource(c *cli.Context) (pipeline.Source, error) {
	credentials := c.String("credentials")
	if credentials == "" {
		return nil, fmt.Errorf("drive credentials are required (--credentials or GOOGLE_DRIVE_CREDENTIALS_JSON)")
	}

	svc, err := drive.NewService(c.Context, credentials)
	if err != nil {
		return nil, err
	}

	folderID := c.String("folder-id")
	if folderID == "" {
		path := c.String("folder-path")
		if path == "" {
			return nil, fmt.Errorf("either --folder-id or --folder-path is required")
		}
		if folderID, err = svc.FindFolderByPath(c.Context, path); err != nil {
			return nil, err
		}
	}

	opts := drive.DownloadOptions{FolderID: folderID, DownloadDir: c.String("download-dir")}
	downloader := drive.NewDownloader(svc)

	return pipeline.SourceFunc{
		Label: "drive",
		Fn: func(ctx context.Context) (*pipeline.Inputs, error) {
			stockPath, movementsPath, err := downloader.DownloadInputs(ctx, opts)
			if err != nil {
				return nil, err
			}
			logger.Log.Info().Str("stock", stockPath).Str("movements", movementsPath).Msg("Downloaded inputs from drive")
			return loader.LoadInputs(ctx, stockPath, movementsPath)
		},
	}, nil
}

func databaseSource(c *cli.Context, cfg *config.Config) (pipeline.Source, func(), error) {
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	src := &postgres.Source{
		Repo: postgres.NewInventoryRepository(db),
		Filter: postgres.InventoryFilter{
			Branches:  c.StringSlice("branch"),
			Locations: c.StringSlice("location"),
		},
		Since: postgres.WindowStart(time.Now(), c.Int("period-months")),
	}
	return src, func() { _ = db.Close() }, nil
}
