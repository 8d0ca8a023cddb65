package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/analytics"
	sc "github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

const (
	analysisSheet = "Análise"
	summarySheet  = "Resumo"
)

// WriteXLSX writes an analysis sheet with one row per record and a summary
// sheet with the status and priority counts.
func WriteXLSX(w io.Writer, records []sc.EnrichedProductRecord, summary analytics.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), analysisSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeSheetRow(f, analysisSheet, 1, toAny(headers())); err != nil {
		return err
	}
	for i := range records {
		row := make([]any, len(columns))
		for c, col := range columns {
			row[c] = col.cell(&records[i])
		}
		if err := writeSheetRow(f, analysisSheet, i+2, row); err != nil {
			return err
		}
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(analysisSheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}
	if err := f.SetPanes(analysisSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	if err := writeSummary(f, summary); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", headerStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, summary analytics.Summary) error {
	rows := [][]any{
		{"Indicador", "Valor"},
		{"Produtos", summary.TotalProducts},
		{"Saldo total", summary.TotalBalance},
		{"Consumo total", summary.TotalConsumption},
		{"Sugestão de reposição total", summary.TotalReplenishment},
		{"Custo de reposição total", summary.TotalReplenishmentCost.InexactFloat64()},
	}
	for _, status := range sc.Statuses {
		rows = append(rows, []any{"Status: " + status.Label(), summary.ByStatus[status]})
	}
	for _, priority := range sc.Priorities {
		rows = append(rows, []any{"Prioridade: " + priority.Label(), summary.ByPriority[priority]})
	}

	for i, row := range rows {
		if err := writeSheetRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", rowNum, sheet, err)
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
