package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

// Runner loads inputs from a Source and runs the coverage engine over them
type Runner struct {
	engine *stock_coverage.Engine
	now    func() time.Time
}

// NewRunner creates a runner. A nil engine uses the default outbound codes.
func NewRunner(engine *stock_coverage.Engine) *Runner {
	if engine == nil {
		engine = stock_coverage.NewEngine(nil)
	}
	return &Runner{engine: engine, now: time.Now}
}

// Run executes one analysis. The returned Output always carries the run summary,
// including on failure.
func (r *Runner) Run(ctx context.Context, src Source, cfg RunConfig) (*Output, error) {
	out := &Output{
		Run: RunSummary{
			ID:           uuid.NewString(),
			Source:       src.Name(),
			PeriodMonths: cfg.PeriodMonths,
			Strict:       cfg.Strict,
			Status:       StatusPending,
			StartedAt:    r.now(),
		},
	}

	base := log.Logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		base = *l
	}
	logger := base.With().Str("run_id", out.Run.ID).Str("source", out.Run.Source).Logger()
	ctx = logger.WithContext(ctx)

	out.Run.Status = StatusProcessing
	logger.Info().Int("period_months", cfg.PeriodMonths).Bool("strict", cfg.Strict).Msg("Starting analysis run")

	inputs, err := src.Load(ctx)
	if err != nil {
		return out, r.fail(&out.Run, logger, fmt.Errorf("failed to load inputs: %w", err))
	}
	out.Inputs = inputs
	out.Run.StockRecords = len(inputs.Stock)
	out.Run.Movements = len(inputs.Movements)

	result, err := r.engine.Compute(ctx, inputs.Stock, inputs.Movements, cfg.Options())
	if err != nil {
		return out, r.fail(&out.Run, logger, err)
	}
	out.Result = result
	out.Run.Enriched = len(result.Records)
	out.Run.Excluded = len(result.Excluded)

	r.complete(&out.Run, StatusCompleted)
	logger.Info().
		Int("stock_records", out.Run.StockRecords).
		Int("movements", out.Run.Movements).
		Int("enriched", out.Run.Enriched).
		Int("excluded", out.Run.Excluded).
		Int64("duration_ms", out.Run.DurationMillis).
		Msg("Analysis run completed")

	return out, nil
}

func (r *Runner) fail(run *RunSummary, logger zerolog.Logger, err error) error {
	run.ErrorMessage = err.Error()
	r.complete(run, StatusFailed)
	logger.Error().Err(err).Msg("Analysis run failed")
	return err
}

func (r *Runner) complete(run *RunSummary, status RunStatus) {
	now := r.now()
	run.Status = status
	run.CompletedAt = &now
	run.DurationMillis = now.Sub(run.StartedAt).Milliseconds()
}

// StaticSource serves inputs already held in memory
type StaticSource struct {
	Label  string
	Inputs Inputs
}

func (s *StaticSource) Name() string {
	if s.Label == "" {
		return "memory"
	}
	return s.Label
}

func (s *StaticSource) Load(context.Context) (*Inputs, error) {
	return &s.Inputs, nil
}

// SourceFunc adapts a function into a Source
type SourceFunc struct {
	Label string
	Fn    func(ctx context.Context) (*Inputs, error)
}

func (s SourceFunc) Name() string { return s.Label }

func (s SourceFunc) Load(ctx context.Context) (*Inputs, error) {
	return s.Fn(ctx)
}
