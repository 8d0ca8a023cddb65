package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/analytics"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/config"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/export"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/storage"
	"github.com/andresuchdata/stock-dashboard/backend-go/pkg/logger"
)

func analysisFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "period-months",
			Usage:   "Months of movement history the consumption covers",
			Value:   cfg.Analysis.PeriodMonths,
			EnvVars: []string{"ANALYSIS_PERIOD_MONTHS"},
		},
		&cli.BoolFlag{
			Name:    "strict",
			Usage:   "Fail on the first invalid stock record instead of excluding it",
			Value:   cfg.Analysis.Strict,
			EnvVars: []string{"ANALYSIS_STRICT"},
		},
		&cli.IntFlag{
			Name:    "chunk-size",
			Usage:   "Stock records processed between scheduler yields (0 disables chunking)",
			Value:   cfg.Analysis.ChunkSize,
			EnvVars: []string{"ANALYSIS_CHUNK_SIZE"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Export file (.xlsx or .csv); defaults to a timestamped xlsx in the data dir",
		},
		&cli.StringFlag{
			Name:    "upload-prefix",
			Usage:   "Upload the export to the storage bucket under this prefix",
			EnvVars: []string{"STORAGE_OUTPUT_PREFIX"},
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "Number of replenishment suggestions to print",
			Value: cfg.Analysis.TopN,
		},
	}
}

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	withAnalysisFlags := func(flags ...cli.Flag) []cli.Flag {
		return append(flags, analysisFlags(cfg)...)
	}

	app := &cli.App{
		Name:  "analyze",
		Usage: "Compute inventory coverage, status and replenishment suggestions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   cfg.LogLevel,
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "files",
				Usage: "Analyse local stock and movements files (CSV or XLSX)",
				Flags: withAnalysisFlags(
					&cli.StringFlag{Name: "stock", Usage: "Stock balance file", Required: true},
					&cli.StringFlag{Name: "movements", Usage: "Stock movements file", Required: true},
				),
				Action: func(c *cli.Context) error {
					return runAnalysis(c, cfg, fileSource(c))
				},
			},
			{
				Name:  "storage",
				Usage: "Download the newest input pair from the storage bucket and analyse it",
				Flags: withAnalysisFlags(
					&cli.StringFlag{
						Name:    "prefix",
						Usage:   "Object prefix holding the stock and movements files",
						EnvVars: []string{"STORAGE_INPUT_PREFIX"},
					},
					&cli.StringFlag{
						Name:  "download-dir",
						Usage: "Directory the objects are downloaded into",
						Value: filepath.Join(cfg.App.UploadDir, "storage"),
					},
				),
				Action: func(c *cli.Context) error {
					src, err := storageSource(c, cfg)
					if err != nil {
						return err
					}
					return runAnalysis(c, cfg, src)
				},
			},
			{
				Name:  "drive",
				Usage: "Download the input pair from a Google Drive folder and analyse it",
				Flags: withAnalysisFlags(
					&cli.StringFlag{Name: "folder-id", Usage: "Drive folder ID", EnvVars: []string{"GOOGLE_DRIVE_FOLDER_ID"}},
					&cli.StringFlag{Name: "folder-path", Usage: "Drive folder path, resolved when no ID is given"},
					&cli.StringFlag{
						Name:    "credentials",
						Usage:   "Service account credentials JSON",
						EnvVars: []string{"GOOGLE_DRIVE_CREDENTIALS_JSON"},
					},
					&cli.StringFlag{
						Name:  "download-dir",
						Usage: "Directory the files are downloaded into",
						Value: filepath.Join(cfg.App.UploadDir, "drive"),
					},
				),
				Action: func(c *cli.Context) error {
					src, err := driveSource(c)
					if err != nil {
						return err
					}
					return runAnalysis(c, cfg, src)
				},
			},
			{
				Name:  "db",
				Usage: "Analyse the stock and movements tables of the ERP database",
				Flags: withAnalysisFlags(
					&cli.StringSliceFlag{Name: "branch", Usage: "Restrict to these branches"},
					&cli.StringSliceFlag{Name: "location", Usage: "Restrict to these locations"},
				),
				Action: func(c *cli.Context) error {
					src, closeDB, err := databaseSource(c, cfg)
					if err != nil {
						return err
					}
					defer closeDB()
					return runAnalysis(c, cfg, src)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("Analysis failed")
	}
}

func runAnalysis(c *cli.Context, cfg *config.Config, src pipeline.Source) error {
	runLog := logger.WithComponent("analyze")
	ctx := runLog.WithContext(c.Context)
	runCfg := pipeline.RunConfig{
		PeriodMonths: c.Int("period-months"),
		Strict:       c.Bool("strict"),
		ChunkSize:    c.Int("chunk-size"),
	}

	out, err := pipeline.NewRunner(nil).Run(ctx, src, runCfg)
	if err != nil {
		return err
	}

	records := out.Result.Records
	summary := analytics.Summarize(records)
	integrity := analytics.CheckIntegrity(out.Run.StockRecords, records)
	logSummary(&runLog, out.Run, summary, integrity)

	for _, rec := range analytics.TopReplenishment(records, c.Int("top")) {
		runLog.Info().
			Str("key", rec.Key()).
			Str("description", rec.Description).
			Str("status", string(rec.Status)).
			Float64("suggestion", rec.ReplenishmentSuggestion).
			Str("cost", rec.ReplenishmentCost.StringFixed(2)).
			Msg("Replenishment suggestion")
	}

	outputPath := c.String("output")
	if outputPath == "" {
		outputPath = defaultOutputPath(cfg.App.DataDir, out.Run.StartedAt)
	}
	format, err := export.WriteFile(outputPath, records, summary)
	if err != nil {
		return err
	}
	runLog.Info().Str("path", outputPath).Str("format", string(format)).Msg("Export written")

	if prefix := c.String("upload-prefix"); prefix != "" {
		if err := uploadExport(c, cfg.Storage, prefix, outputPath, format); err != nil {
			return err
		}
	}

	return nil
}

func logSummary(l *zerolog.Logger, run pipeline.RunSummary, summary analytics.Summary, integrity analytics.IntegrityReport) {
	event := l.Info().
		Str("run_id", run.ID).
		Int("products", summary.TotalProducts).
		Int("excluded", run.Excluded).
		Str("replenishment_cost", summary.TotalReplenishmentCost.StringFixed(2))
	for status, count := range summary.ByStatus {
		event = event.Int(string(status), count)
	}
	event.Msg("Analysis summary")

	if !integrity.Valid {
		for _, w := range integrity.Warnings {
			l.Warn().Str("run_id", run.ID).Msg(w)
		}
	}
}

func uploadExport(c *cli.Context, cfg config.StorageConfig, prefix, path string, format export.Format) error {
	client, err := storage.NewMinioClient(cfg)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	key := storage.OutputKey(prefix, filepath.Base(path))
	if err := client.UploadObject(c.Context, key, data, format.ContentType()); err != nil {
		return err
	}
	logger.Log.Info().Str("key", key).Str("bucket", cfg.Bucket).Msg("Export uploaded")
	return nil
}

func defaultOutputPath(dir string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("analise_estoque_%s.xlsx", at.Format("20060102_150405")))
}
