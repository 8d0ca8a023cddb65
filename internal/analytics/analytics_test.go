package analytics

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sc "github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

func enriched(code string, status sc.Status, priority sc.Priority, replenishment float64) sc.EnrichedProductRecord {
	return sc.EnrichedProductRecord{
		StockRecord: sc.StockRecord{
			Branch:      "01",
			ProductCode: code,
			Location:    "L1",
			Description: "Item " + code,
			Balance:     10,
		},
		Consumption:             replenishment,
		Status:                  status,
		Priority:                priority,
		ReplenishmentSuggestion: replenishment,
		ReplenishmentCost:       decimal.NewFromFloat(replenishment).Mul(decimal.NewFromInt(2)),
		Availability:            sc.AvailabilityAvailable,
		CoverageMonths:          sc.Coverage(1),
	}
}

func sample() []sc.EnrichedProductRecord {
	return []sc.EnrichedProductRecord{
		enriched("A1", sc.StatusCritical, sc.PriorityHigh, 40),
		enriched("B2", sc.StatusLow, sc.PriorityMedium, 15),
		enriched("C3", sc.StatusExcess, sc.PriorityLow, 0),
		enriched("D4", sc.StatusCritical, sc.PriorityHigh, 40),
		enriched("E5", sc.StatusNoMovement, sc.PriorityLow, 0),
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize(sample())

	assert.Equal(t, 5, summary.TotalProducts)
	assert.Equal(t, 50.0, summary.TotalBalance)
	assert.Equal(t, 95.0, summary.TotalReplenishment)
	assert.True(t, decimal.NewFromInt(190).Equal(summary.TotalReplenishmentCost))
	assert.Equal(t, 2, summary.ByStatus[sc.StatusCritical])
	assert.Equal(t, 0, summary.ByStatus[sc.StatusAdequate])
	assert.Len(t, summary.ByStatus, len(sc.Statuses))
	assert.Equal(t, 2, summary.ByPriority[sc.PriorityLow])
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)

	assert.Equal(t, 0, summary.TotalProducts)
	assert.Equal(t, 0, summary.ByStatus[sc.StatusCritical])
}

func TestTopReplenishmentIsStable(t *testing.T) {
	top := TopReplenishment(sample(), 2)

	require.Len(t, top, 2)
	assert.Equal(t, "A1", top[0].ProductCode)
	assert.Equal(t, "D4", top[1].ProductCode)

	all := TopReplenishment(sample(), 0)
	require.Len(t, all, 3)
	assert.Equal(t, "B2", all[2].ProductCode)
}

func TestCheckIntegrity(t *testing.T) {
	records := sample()
	records = append(records, records[0])
	records[1].Reserved = -2

	report := CheckIntegrity(7, records)

	assert.False(t, report.Valid)
	assert.Equal(t, []string{"01-A1-L1"}, report.DuplicateKeys)
	assert.Equal(t, []string{"01-B2-L1: reserved"}, report.NegativeValues)
	assert.Len(t, report.Warnings, 3)

	clean := CheckIntegrity(5, sample())
	assert.True(t, clean.Valid)
	assert.Empty(t, clean.Warnings)
}

func TestApplyViewFiltersAndSearches(t *testing.T) {
	page := ApplyView(sample(), View{Statuses: []sc.Status{sc.StatusCritical}})
	assert.Equal(t, 2, page.Total)

	page = ApplyView(sample(), View{Search: "item b"})
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "B2", page.Items[0].ProductCode)

	page = ApplyView(sample(), View{Branches: []string{"02"}})
	assert.Equal(t, 0, page.Total)
	assert.NotNil(t, page.Items)
}

func TestApplyViewSortsAndPaginates(t *testing.T) {
	records := sample()
	records[2].CoverageMonths = sc.Coverage(math.Inf(1))

	page := ApplyView(records, View{SortField: "coverage_months", SortDirection: "desc", PageSize: 2})
	require.Len(t, page.Items, 2)
	assert.Equal(t, "C3", page.Items[0].ProductCode)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)

	page = ApplyView(records, View{SortField: "status", Page: 3, PageSize: 2})
	require.Len(t, page.Items, 1)
	assert.Equal(t, "E5", page.Items[0].ProductCode)

	page = ApplyView(records, View{Page: 9})
	assert.Empty(t, page.Items)
	assert.Equal(t, DefaultPageSize, page.PageSize)

	page = ApplyView(records, View{Page: math.MaxInt, PageSize: 2})
	assert.Empty(t, page.Items)
	assert.Equal(t, 5, page.Total)

	page = ApplyView(records, View{PageSize: 5000})
	assert.Equal(t, MaxPageSize, page.PageSize)

	assert.Equal(t, "A1", records[0].ProductCode)
}
