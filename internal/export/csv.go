package export

import (
	"encoding/csv"
	"fmt"
	"io"

	sc "github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

// WriteCSV writes records as a semicolon separated file with Brazilian number
// formatting, one row per record in input order.
func WriteCSV(w io.Writer, records []sc.EnrichedProductRecord) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(headers()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(columns))
	for i := range records {
		for c, col := range columns {
			row[c] = col.text(&records[i])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
