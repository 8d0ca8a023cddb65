package stock_coverage

import (
	"context"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Engine joins stock records with aggregated consumption and classifies them.
// It holds no per-run state and is safe for concurrent use.
type Engine struct {
	aggregator *ConsumptionAggregator
	validate   *validator.Validate
}

// NewEngine creates an engine. A nil aggregator uses DefaultOutboundCodes.
func NewEngine(aggregator *ConsumptionAggregator) *Engine {
	if aggregator == nil {
		aggregator = defaultAggregator
	}
	return &Engine{
		aggregator: aggregator,
		validate:   newValidator(),
	}
}

// Compute enriches every stock record, preserving input order. Invalid records
// fail the call in strict mode and are listed in Result.Excluded otherwise.
func (e *Engine) Compute(ctx context.Context, stock []StockRecord, movements []MovementRecord, opts Options) (*Result, error) {
	if opts.PeriodMonths <= 0 {
		return nil, &ConfigurationError{Field: "periodMonths", Value: opts.PeriodMonths}
	}
	if opts.ChunkSize < 0 {
		return nil, &ConfigurationError{Field: "chunkSize", Value: opts.ChunkSize}
	}

	logger := zerolog.Ctx(ctx)

	consumption := e.aggregator.Aggregate(movements)
	activity := e.aggregator.AggregateActivity(movements)
	calc := NewCoverageCalculator(opts.PeriodMonths)

	result := &Result{
		Records:  make([]EnrichedProductRecord, 0, len(stock)),
		Excluded: []ValidationError{},
	}

	chunk := opts.ChunkSize
	if chunk == 0 {
		chunk = len(stock)
	}

	for start := 0; start < len(stock); start += chunk {
		end := min(start+chunk, len(stock))

		for i := start; i < end; i++ {
			rec := normalizeStock(stock[i])
			if verr := e.check(i, rec, opts.Strict); verr != nil {
				if opts.Strict {
					return nil, verr
				}
				logger.Debug().
					Int("index", verr.Index).
					Str("key", verr.Key).
					Str("field", verr.Field).
					Str("reason", verr.Reason).
					Msg("stock record excluded")
				result.Excluded = append(result.Excluded, *verr)
				continue
			}

			key := rec.Key()
			result.Records = append(result.Records, calc.Calculate(rec, consumption[key], activity[key]))
		}

		if end < len(stock) {
			runtime.Gosched()
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	logger.Debug().
		Int("stock_records", len(stock)).
		Int("movements", len(movements)).
		Int("consumption_keys", len(consumption)).
		Int("enriched", len(result.Records)).
		Int("excluded", len(result.Excluded)).
		Msg("coverage computed")

	return result, nil
}

var defaultEngine = NewEngine(nil)

// Compute runs the default engine.
func Compute(ctx context.Context, stock []StockRecord, movements []MovementRecord, opts Options) (*Result, error) {
	return defaultEngine.Compute(ctx, stock, movements, opts)
}
