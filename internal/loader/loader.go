package loader

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

// LoadStock reads a stock snapshot file (.csv or .xlsx).
func LoadStock(path string) ([]stock_coverage.StockRecord, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	return parseStock(filepath.Base(path), t)
}

// LoadMovements reads a movements file (.csv or .xlsx).
func LoadMovements(path string) ([]stock_coverage.MovementRecord, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	return parseMovements(filepath.Base(path), t)
}

// ReadStock parses a stock snapshot from r; name supplies the format.
func ReadStock(r io.Reader, name string) ([]stock_coverage.StockRecord, error) {
	t, err := readTableFrom(r, name)
	if err != nil {
		return nil, err
	}
	return parseStock(name, t)
}

// ReadMovements parses movements from r; name supplies the format.
func ReadMovements(r io.Reader, name string) ([]stock_coverage.MovementRecord, error) {
	t, err := readTableFrom(r, name)
	if err != nil {
		return nil, err
	}
	return parseMovements(name, t)
}

// LoadInputs reads both files concurrently.
func LoadInputs(ctx context.Context, stockPath, movementsPath string) (*pipeline.Inputs, error) {
	inputs := &pipeline.Inputs{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stock, err := LoadStock(stockPath)
		if err != nil {
			return fmt.Errorf("failed to load stock: %w", err)
		}
		inputs.Stock = stock
		return ctx.Err()
	})

	g.Go(func() error {
		movements, err := LoadMovements(movementsPath)
		if err != nil {
			return fmt.Errorf("failed to load movements: %w", err)
		}
		inputs.Movements = movements
		return ctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// FileSource is a pipeline.Source backed by two local files.
type FileSource struct {
	Label         string
	StockPath     string
	MovementsPath string
}

func (s *FileSource) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "files"
}

func (s *FileSource) Load(ctx context.Context) (*pipeline.Inputs, error) {
	return LoadInputs(ctx, s.StockPath, s.MovementsPath)
}

func parseStock(name string, t *table) ([]stock_coverage.StockRecord, error) {
	idx, err := buildHeaderIndex(name, t.header, stockColumns)
	if err != nil {
		return nil, err
	}

	records := make([]stock_coverage.StockRecord, 0, len(t.rows))
	for i, row := range t.rows {
		p := rowParser{file: name, row: i + 2, idx: idx, record: row}
		rec := stock_coverage.StockRecord{
			ProductCode: idx.get(row, "productCode"),
			Branch:      idx.get(row, "branch"),
			Location:    idx.get(row, "location"),
			Description: idx.get(row, "description"),
			Balance:     p.number("balance"),
			Reserved:    p.number("reserved"),
			OnOrder:     p.number("onOrder"),
			UnitCost:    p.number("unitCost"),
		}
		if p.err != nil {
			return nil, p.err
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseMovements(name string, t *table) ([]stock_coverage.MovementRecord, error) {
	idx, err := buildHeaderIndex(name, t.header, movementColumns)
	if err != nil {
		return nil, err
	}

	records := make([]stock_coverage.MovementRecord, 0, len(t.rows))
	for i, row := range t.rows {
		p := rowParser{file: name, row: i + 2, idx: idx, record: row}
		rec := stock_coverage.MovementRecord{
			ProductCode:      idx.get(row, "productCode"),
			Branch:           idx.get(row, "branch"),
			Location:         idx.get(row, "location"),
			MovementTypeCode: idx.get(row, "movementTypeCode"),
			Quantity:         p.number("quantity"),
			Date:             p.date("date"),
		}
		if p.err != nil {
			return nil, p.err
		}
		records = append(records, rec)
	}
	return records, nil
}

// rowParser keeps the first parse failure of a row.
type rowParser struct {
	file   string
	row    int
	idx    headerIndex
	record []string
	err    error
}

func (p *rowParser) number(field string) float64 {
	raw := p.idx.get(p.record, field)
	v, err := ParseNumber(raw)
	if err != nil {
		p.fail(field, raw)
		return 0
	}
	return v
}

func (p *rowParser) date(field string) time.Time {
	raw := p.idx.get(p.record, field)
	v, err := ParseDate(raw)
	if err != nil {
		p.fail(field, raw)
		return time.Time{}
	}
	return v
}

func (p *rowParser) fail(field, raw string) {
	if p.err == nil {
		p.err = &ValueError{File: p.file, Row: p.row, Column: field, Value: raw}
	}
}
