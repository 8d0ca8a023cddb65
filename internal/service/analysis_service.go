package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/analytics"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/cache"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/config"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/domain"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/loader"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/repository/postgres"
)

// ErrSourceUnavailable is returned for database analyses when no database is configured.
var ErrSourceUnavailable = errors.New("inventory database is not configured")

// InventoryRepository is the database side used by the analysis service
type InventoryRepository interface {
	LoadInputs(ctx context.Context, filter postgres.InventoryFilter, since time.Time) (*pipeline.Inputs, error)
	ListBranches(ctx context.Context) ([]string, error)
	ListLocations(ctx context.Context, branch string) ([]string, error)
}

// Upload holds the raw bytes of an uploaded stock and movements pair.
type Upload struct {
	StockName     string
	Stock         []byte
	MovementsName string
	Movements     []byte
}

type AnalysisService struct {
	runner   *pipeline.Runner
	repo     InventoryRepository
	cache    cache.AnalysisCache
	defaults config.AnalysisConfig
	now      func() time.Time
}

// NewAnalysisService wires the service. repo may be nil when no database is
// configured, in which case only uploads can be analysed.
func NewAnalysisService(runner *pipeline.Runner, repo InventoryRepository, cacheImpl cache.AnalysisCache, defaults config.AnalysisConfig) *AnalysisService {
	if runner == nil {
		runner = pipeline.NewRunner(nil)
	}
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopAnalysisCache()
	}
	return &AnalysisService{
		runner:   runner,
		repo:     repo,
		cache:    cacheImpl,
		defaults: defaults,
		now:      time.Now,
	}
}

// HasDatabase reports whether database analyses are available.
func (s *AnalysisService) HasDatabase() bool {
	return s.repo != nil
}

// AnalyzeUpload runs the analysis over an uploaded file pair and returns one page of it.
func (s *AnalysisService) AnalyzeUpload(ctx context.Context, upload Upload, filter domain.AnalysisFilter) (*domain.AnalysisResponse, error) {
	view, err := filter.View()
	if err != nil {
		return nil, err
	}
	entry, err := s.RunUpload(ctx, upload, filter)
	if err != nil {
		return nil, err
	}
	return s.respond(entry, view), nil
}

// AnalyzeDatabase runs the analysis over the configured database and returns one page of it.
func (s *AnalysisService) AnalyzeDatabase(ctx context.Context, filter domain.AnalysisFilter) (*domain.AnalysisResponse, error) {
	view, err := filter.View()
	if err != nil {
		return nil, err
	}
	entry, err := s.RunDatabase(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.respond(entry, view), nil
}

// RunUpload returns the full run for an upload, from cache when the same
// content was analysed with the same settings.
func (s *AnalysisService) RunUpload(ctx context.Context, upload Upload, filter domain.AnalysisFilter) (*cache.AnalysisEntry, error) {
	cfg := s.runConfig(filter)
	key := cache.NewKeyBuilder("upload", cfg).
		AddContent("stock", upload.Stock).
		AddContent("movements", upload.Movements).
		Key()

	src := pipeline.SourceFunc{
		Label: "upload",
		Fn: func(ctx context.Context) (*pipeline.Inputs, error) {
			return readUpload(ctx, upload)
		},
	}
	return s.run(ctx, key, src, cfg, filter.Refresh)
}

// RunDatabase returns the full run for the database window that ends today.
func (s *AnalysisService) RunDatabase(ctx context.Context, filter domain.AnalysisFilter) (*cache.AnalysisEntry, error) {
	if s.repo == nil {
		return nil, ErrSourceUnavailable
	}

	cfg := s.runConfig(filter)
	since := postgres.WindowStart(s.now(), cfg.PeriodMonths)
	dbFilter := postgres.InventoryFilter{Branches: filter.Branches, Locations: filter.Locations}
	key := cache.NewKeyBuilder("protheus", cfg).
		AddList("branch", dbFilter.Branches).
		AddList("location", dbFilter.Locations).
		Add("since", since.Format("2006-01-02")).
		Key()

	src := pipeline.SourceFunc{
		Label: "protheus",
		Fn: func(ctx context.Context) (*pipeline.Inputs, error) {
			return s.repo.LoadInputs(ctx, dbFilter, since)
		},
	}
	return s.run(ctx, key, src, cfg, filter.Refresh)
}

// Select returns every record of a run that matches the filter, sorted but
// not paginated.
func (s *AnalysisService) Select(entry *cache.AnalysisEntry, filter domain.AnalysisFilter) ([]stock_coverage.EnrichedProductRecord, error) {
	view, err := filter.View()
	if err != nil {
		return nil, err
	}
	return analytics.Select(entry.Result.Records, view), nil
}

func (s *AnalysisService) ListBranches(ctx context.Context) (*domain.OptionList, error) {
	if s.repo == nil {
		return nil, ErrSourceUnavailable
	}
	branches, err := s.repo.ListBranches(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.OptionList{Items: branches, Total: len(branches)}, nil
}

func (s *AnalysisService) ListLocations(ctx context.Context, branch string) (*domain.OptionList, error) {
	if s.repo == nil {
		return nil, ErrSourceUnavailable
	}
	locations, err := s.repo.ListLocations(ctx, branch)
	if err != nil {
		return nil, err
	}
	return &domain.OptionList{Items: locations, Total: len(locations)}, nil
}

// ClearCache drops every cached analysis.
func (s *AnalysisService) ClearCache(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

// run serves key from the cache unless refresh is set, in which case the
// entry is dropped and recomputed.
func (s *AnalysisService) run(ctx context.Context, key string, src pipeline.Source, cfg pipeline.RunConfig, refresh bool) (*cache.AnalysisEntry, error) {
	if refresh {
		if err := s.cache.Invalidate(ctx, key); err != nil {
			log.Warn().Err(err).Msg("inventory analysis: cache invalidate failed")
		}
	} else if entry, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		entry.Run.Cached = true
		return entry, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("inventory analysis: cache get failed")
	}

	out, err := s.runner.Run(ctx, src, cfg)
	if err != nil {
		return nil, err
	}

	entry := &cache.AnalysisEntry{Run: out.Run, Result: *out.Result}
	if err := s.cache.Set(ctx, key, entry); err != nil {
		log.Warn().Err(err).Msg("inventory analysis: cache set failed")
	}

	return entry, nil
}

func (s *AnalysisService) runConfig(filter domain.AnalysisFilter) pipeline.RunConfig {
	return filter.RunConfig(pipeline.RunConfig{
		PeriodMonths: s.defaults.PeriodMonths,
		Strict:       s.defaults.Strict,
		ChunkSize:    s.defaults.ChunkSize,
	})
}

func (s *AnalysisService) respond(entry *cache.AnalysisEntry, view analytics.View) *domain.AnalysisResponse {
	records := entry.Result.Records
	page := analytics.ApplyView(records, view)

	excluded := entry.Result.Excluded
	if excluded == nil {
		excluded = []stock_coverage.ValidationError{}
	}

	return &domain.AnalysisResponse{
		Items:            page.Items,
		Total:            page.Total,
		Page:             page.Page,
		PageSize:         page.PageSize,
		TotalPages:       page.TotalPages,
		Summary:          analytics.Summarize(records),
		TopReplenishment: analytics.TopReplenishment(records, s.defaults.TopN),
		Integrity:        analytics.CheckIntegrity(entry.Run.StockRecords, records),
		Excluded:         excluded,
		Run:              entry.Run,
	}
}

func readUpload(ctx context.Context, upload Upload) (*pipeline.Inputs, error) {
	inputs := &pipeline.Inputs{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		inputs.Stock, err = loader.ReadStock(bytes.NewReader(upload.Stock), upload.StockName)
		return err
	})
	g.Go(func() error {
		var err error
		inputs.Movements, err = loader.ReadMovements(bytes.NewReader(upload.Movements), upload.MovementsName)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}
