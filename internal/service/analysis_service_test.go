package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/cache"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/config"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/domain"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/repository/postgres"
)

const (
	stockCSV = "B2_FILIAL;B2_COD;B2_LOCAL;B1_DESC;B2_QATU;B2_RESERVA;B2_CM1\n" +
		"01;A1;L1;Parafuso;10;0;2,50\n" +
		"01;B2;L1;Porca;100;0;1\n" +
		"01;C3;L1;Arruela;5;0;1\n"
	movementsCSV = "D3_FILIAL;D3_COD;D3_LOCAL;D3_TM;D3_QUANT;D3_EMISSAO\n" +
		"01;A1;L1;RE1;40;20240301\n" +
		"01;B2;L1;RE1;20;20240302\n" +
		"01;B2;L1;XYZ;500;20240303\n"
)

type memoryCache struct {
	entries map[string]*cache.AnalysisEntry
	gets    int
	sets    int
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*cache.AnalysisEntry{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (*cache.AnalysisEntry, bool, error) {
	m.gets++
	if m.failGet {
		return nil, false, errors.New("redis down")
	}
	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	cp := *entry
	return &cp, true, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, entry *cache.AnalysisEntry) error {
	m.sets++
	m.entries[key] = entry
	return nil
}

func (m *memoryCache) Invalidate(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func (m *memoryCache) InvalidateAll(ctx context.Context) error {
	m.entries = map[string]*cache.AnalysisEntry{}
	return nil
}

func (m *memoryCache) Close() error { return nil }

type fakeRepo struct {
	inputs   *pipeline.Inputs
	filter   postgres.InventoryFilter
	since    time.Time
	branches []string
}

func (f *fakeRepo) LoadInputs(ctx context.Context, filter postgres.InventoryFilter, since time.Time) (*pipeline.Inputs, error) {
	f.filter = filter
	f.since = since
	return f.inputs, nil
}

func (f *fakeRepo) ListBranches(ctx context.Context) ([]string, error) {
	return f.branches, nil
}

func (f *fakeRepo) ListLocations(ctx context.Context, branch string) ([]string, error) {
	return []string{branch + "-L1"}, nil
}

func ptr[T any](v T) *T { return &v }

func defaults() config.AnalysisConfig {
	return config.AnalysisConfig{PeriodMonths: 4, ChunkSize: 100, TopN: 2}
}

func upload() Upload {
	return Upload{
		StockName:     "estoque.csv",
		Stock:         []byte(stockCSV),
		MovementsName: "movimentos.csv",
		Movements:     []byte(movementsCSV),
	}
}

func TestAnalyzeUpload(t *testing.T) {
	svc := NewAnalysisService(nil, nil, nil, defaults())

	resp, err := svc.AnalyzeUpload(context.Background(), upload(), domain.AnalysisFilter{})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 3, resp.Run.StockRecords)
	assert.Equal(t, 4, resp.Run.PeriodMonths)
	assert.Equal(t, "upload", resp.Run.Source)
	assert.True(t, resp.Integrity.Valid)
	assert.Empty(t, resp.Excluded)
	assert.Equal(t, 1, resp.Summary.ByStatus[stock_coverage.StatusNoMovement])

	byCode := map[string]stock_coverage.EnrichedProductRecord{}
	for _, rec := range resp.Items {
		byCode[rec.ProductCode] = rec
	}
	// A1: avg 10, coverage 1 -> LOW
	assert.Equal(t, stock_coverage.StatusLow, byCode["A1"].Status)
	// B2: avg 5, coverage 20 -> EXCESS
	assert.Equal(t, stock_coverage.StatusExcess, byCode["B2"].Status)
	assert.Equal(t, stock_coverage.StatusNoMovement, byCode["C3"].Status)

	require.Len(t, resp.TopReplenishment, 1)
	assert.Equal(t, "A1", resp.TopReplenishment[0].ProductCode)
	assert.InDelta(t, 30, resp.TopReplenishment[0].ReplenishmentSuggestion, 1e-9)
}

func TestAnalyzeUploadFiltersAndPaginates(t *testing.T) {
	svc := NewAnalysisService(nil, nil, nil, defaults())

	resp, err := svc.AnalyzeUpload(context.Background(), upload(), domain.AnalysisFilter{
		Statuses:  []string{"excess", "Sem movimento"},
		SortField: "product_code",
		SortDir:   "desc",
		PageSize:  1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "C3", resp.Items[0].ProductCode)
	// aggregates cover the whole run, not the page
	assert.Equal(t, 3, resp.Summary.TotalProducts)
}

func TestAnalyzeUploadRejectsUnknownFilter(t *testing.T) {
	svc := NewAnalysisService(nil, nil, nil, defaults())

	_, err := svc.AnalyzeUpload(context.Background(), upload(), domain.AnalysisFilter{Priorities: []string{"urgent"}})

	var filterErr *domain.InvalidFilterError
	require.ErrorAs(t, err, &filterErr)
	assert.Equal(t, "priority", filterErr.Param)
}

func TestAnalyzeUploadInvalidPeriod(t *testing.T) {
	svc := NewAnalysisService(nil, nil, nil, defaults())

	for _, period := range []int{0, -1} {
		_, err := svc.AnalyzeUpload(context.Background(), upload(), domain.AnalysisFilter{PeriodMonths: ptr(period)})
		assert.ErrorIs(t, err, stock_coverage.ErrInvalidConfiguration, period)
	}
}

func TestAnalyzeUploadStrictOverridesDefault(t *testing.T) {
	cfg := defaults()
	cfg.Strict = true
	svc := NewAnalysisService(nil, nil, nil, cfg)
	stock := "B2_FILIAL;B2_COD;B2_LOCAL;B2_QATU\n01;A1;L1;10\n01;A2;L1;-1\n"
	up := Upload{StockName: "estoque.csv", Stock: []byte(stock), MovementsName: "movimentos.csv", Movements: []byte(movementsCSV)}

	_, err := svc.AnalyzeUpload(context.Background(), up, domain.AnalysisFilter{})
	assert.ErrorIs(t, err, stock_coverage.ErrInvalidRecord)

	resp, err := svc.AnalyzeUpload(context.Background(), up, domain.AnalysisFilter{Strict: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.False(t, resp.Run.Strict)
}

func TestAnalyzeUploadUsesCache(t *testing.T) {
	mc := newMemoryCache()
	svc := NewAnalysisService(nil, nil, mc, defaults())
	ctx := context.Background()

	first, err := svc.AnalyzeUpload(ctx, upload(), domain.AnalysisFilter{})
	require.NoError(t, err)
	assert.False(t, first.Run.Cached)

	second, err := svc.AnalyzeUpload(ctx, upload(), domain.AnalysisFilter{})
	require.NoError(t, err)
	assert.True(t, second.Run.Cached)
	assert.Equal(t, first.Run.ID, second.Run.ID)
	assert.Equal(t, 1, mc.sets)

	_, err = svc.AnalyzeUpload(ctx, upload(), domain.AnalysisFilter{PeriodMonths: ptr(6)})
	require.NoError(t, err)
	assert.Equal(t, 2, mc.sets)
}

func TestAnalyzeUploadRefreshBypassesCache(t *testing.T) {
	mc := newMemoryCache()
	svc := NewAnalysisService(nil, nil, mc, defaults())
	ctx := context.Background()

	first, err := svc.AnalyzeUpload(ctx, upload(), domain.AnalysisFilter{})
	require.NoError(t, err)

	refreshed, err := svc.AnalyzeUpload(ctx, upload(), domain.AnalysisFilter{Refresh: true})
	require.NoError(t, err)
	assert.False(t, refreshed.Run.Cached)
	assert.NotEqual(t, first.Run.ID, refreshed.Run.ID)
	assert.Equal(t, 2, mc.sets)
	assert.Equal(t, 1, mc.gets)

	require.NoError(t, svc.ClearCache(ctx))
	assert.Empty(t, mc.entries)
}

func TestAnalyzeUploadIgnoresCacheFailure(t *testing.T) {
	mc := newMemoryCache()
	mc.failGet = true
	svc := NewAnalysisService(nil, nil, mc, defaults())

	resp, err := svc.AnalyzeUpload(context.Background(), upload(), domain.AnalysisFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
}

func TestAnalyzeDatabase(t *testing.T) {
	repo := &fakeRepo{inputs: &pipeline.Inputs{
		Stock: []stock_coverage.StockRecord{{Branch: "01", ProductCode: "A1", Location: "L1", Balance: 2}},
		Movements: []stock_coverage.MovementRecord{
			{Branch: "01", ProductCode: "A1", Location: "L1", MovementTypeCode: "RE1", Quantity: 12},
		},
	}}
	svc := NewAnalysisService(nil, repo, nil, defaults())
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC) }

	resp, err := svc.AnalyzeDatabase(context.Background(), domain.AnalysisFilter{Branches: []string{"01"}, PeriodMonths: ptr(3)})
	require.NoError(t, err)

	assert.Equal(t, "protheus", resp.Run.Source)
	assert.Equal(t, []string{"01"}, repo.filter.Branches)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), repo.since)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, stock_coverage.StatusCritical, resp.Items[0].Status)
	assert.Equal(t, stock_coverage.PriorityHigh, resp.Items[0].Priority)
}

func TestDatabaseOperationsWithoutRepository(t *testing.T) {
	svc := NewAnalysisService(nil, nil, nil, defaults())
	ctx := context.Background()

	assert.False(t, svc.HasDatabase())

	_, err := svc.AnalyzeDatabase(ctx, domain.AnalysisFilter{})
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	_, err = svc.ListBranches(ctx)
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	_, err = svc.ListLocations(ctx, "01")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestListOptions(t *testing.T) {
	svc := NewAnalysisService(nil, &fakeRepo{branches: []string{"01", "02"}}, nil, defaults())
	ctx := context.Background()

	branches, err := svc.ListBranches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, branches.Total)

	locations, err := svc.ListLocations(ctx, "01")
	require.NoError(t, err)
	assert.Equal(t, []string{"01-L1"}, locations.Items)
}

func TestSelectReturnsAllMatches(t *testing.T) {
	svc := NewAnalysisService(nil, nil, nil, defaults())
	entry, err := svc.RunUpload(context.Background(), upload(), domain.AnalysisFilter{})
	require.NoError(t, err)

	records, err := svc.Select(entry, domain.AnalysisFilter{PageSize: 1, SortField: "product_code"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "A1", records[0].ProductCode)
}
