package analytics

import (
	"fmt"

	sc "github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

// IntegrityReport lists data quality warnings for one run
type IntegrityReport struct {
	Valid          bool     `json:"valid"`
	StockRecords   int      `json:"stock_records"`
	OutputRecords  int      `json:"output_records"`
	DuplicateKeys  []string `json:"duplicate_keys"`
	NegativeValues []string `json:"negative_values"`
	Warnings       []string `json:"warnings"`
}

// CheckIntegrity compares the number of stock records received with the number
// of enriched records and flags duplicate keys and negative quantities.
func CheckIntegrity(stockCount int, records []sc.EnrichedProductRecord) IntegrityReport {
	report := IntegrityReport{
		StockRecords:   stockCount,
		OutputRecords:  len(records),
		DuplicateKeys:  []string{},
		NegativeValues: []string{},
		Warnings:       []string{},
	}

	if stockCount != len(records) {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("received %d stock records but produced %d results", stockCount, len(records)))
	}

	seen := make(map[string]int, len(records))
	for i := range records {
		rec := &records[i]
		key := rec.Key()

		seen[key]++
		if seen[key] == 2 {
			report.DuplicateKeys = append(report.DuplicateKeys, key)
		}

		for _, field := range []struct {
			name  string
			value float64
		}{
			{"balance", rec.Balance},
			{"reserved", rec.Reserved},
			{"onOrder", rec.OnOrder},
			{"unitCost", rec.UnitCost},
		} {
			if field.value < 0 {
				report.NegativeValues = append(report.NegativeValues, key+": "+field.name)
			}
		}
	}

	if len(report.DuplicateKeys) > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d keys appear more than once", len(report.DuplicateKeys)))
	}
	if len(report.NegativeValues) > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d negative quantities found", len(report.NegativeValues)))
	}

	report.Valid = len(report.Warnings) == 0
	return report
}
