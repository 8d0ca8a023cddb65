package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	sc "github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

// DefaultTopN is the size of the replenishment ranking shown on the dashboard.
const DefaultTopN = 10

// Summary aggregates the enriched records of one run
type Summary struct {
	TotalProducts          int                     `json:"total_products"`
	TotalBalance           float64                 `json:"total_balance"`
	TotalReserved          float64                 `json:"total_reserved"`
	TotalConsumption       float64                 `json:"total_consumption"`
	TotalReplenishment     float64                 `json:"total_replenishment"`
	TotalReplenishmentCost decimal.Decimal         `json:"total_replenishment_cost"`
	ByStatus               map[sc.Status]int       `json:"by_status"`
	ByPriority             map[sc.Priority]int     `json:"by_priority"`
	ByAvailability         map[sc.Availability]int `json:"by_availability"`
}

// Summarize counts records per status, priority and availability and totals
// the quantities. Every status and priority is present in the maps, zero or not.
func Summarize(records []sc.EnrichedProductRecord) Summary {
	summary := Summary{
		TotalReplenishmentCost: decimal.Zero,
		ByStatus:               make(map[sc.Status]int, len(sc.Statuses)),
		ByPriority:             make(map[sc.Priority]int, len(sc.Priorities)),
		ByAvailability:         make(map[sc.Availability]int),
	}
	for _, status := range sc.Statuses {
		summary.ByStatus[status] = 0
	}
	for _, priority := range sc.Priorities {
		summary.ByPriority[priority] = 0
	}

	for i := range records {
		rec := &records[i]
		summary.TotalProducts++
		summary.TotalBalance += rec.Balance
		summary.TotalReserved += rec.Reserved
		summary.TotalConsumption += rec.Consumption
		summary.TotalReplenishment += rec.ReplenishmentSuggestion
		summary.TotalReplenishmentCost = summary.TotalReplenishmentCost.Add(rec.ReplenishmentCost)
		summary.ByStatus[rec.Status]++
		summary.ByPriority[rec.Priority]++
		summary.ByAvailability[rec.Availability]++
	}

	return summary
}

// TopReplenishment returns up to n records with the largest replenishment
// suggestion. Ties keep input order and records that need nothing are left out.
func TopReplenishment(records []sc.EnrichedProductRecord, n int) []sc.EnrichedProductRecord {
	if n <= 0 {
		n = DefaultTopN
	}

	ranked := make([]sc.EnrichedProductRecord, 0, len(records))
	for i := range records {
		if records[i].ReplenishmentSuggestion > 0 {
			ranked = append(ranked, records[i])
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ReplenishmentSuggestion > ranked[j].ReplenishmentSuggestion
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
