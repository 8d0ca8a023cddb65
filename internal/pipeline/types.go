package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

// Source supplies the two inputs of an analysis run
type Source interface {
	// Name identifies the source in logs and run records
	Name() string

	// Load returns the stock snapshot and the movements inside the analysis window
	Load(ctx context.Context) (*Inputs, error)
}

// Inputs is the raw material handed to the coverage engine
type Inputs struct {
	Stock     []stock_coverage.StockRecord
	Movements []stock_coverage.MovementRecord
}

// RunConfig holds configuration for a single analysis run
type RunConfig struct {
	PeriodMonths int
	Strict       bool
	ChunkSize    int
}

// Options converts the run config into engine options
func (c RunConfig) Options() stock_coverage.Options {
	return stock_coverage.Options{
		PeriodMonths: c.PeriodMonths,
		Strict:       c.Strict,
		ChunkSize:    c.ChunkSize,
	}
}

// RunStatus represents the current state of an analysis run
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// RunSummary tracks a single execution of the analysis
type RunSummary struct {
	ID             string     `json:"id"`
	Source         string     `json:"source"`
	PeriodMonths   int        `json:"period_months"`
	Strict         bool       `json:"strict"`
	Status         RunStatus  `json:"status"`
	StockRecords   int        `json:"stock_records"`
	Movements      int        `json:"movements"`
	Enriched       int        `json:"enriched"`
	Excluded       int        `json:"excluded"`
	Cached         bool       `json:"cached"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	DurationMillis int64      `json:"duration_ms"`
	ErrorMessage   string     `json:"error_message,omitempty"`
}

// Output is everything a completed run produced
type Output struct {
	Run    RunSummary
	Inputs *Inputs
	Result *stock_coverage.Result
}
