package stock_coverage

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// StockRecord is one balance line of the stock snapshot. Branch, ProductCode and
// Location form its natural key.
type StockRecord struct {
	ProductCode string  `json:"productCode" validate:"required"`
	Branch      string  `json:"branch" validate:"required"`
	Location    string  `json:"location" validate:"required"`
	Description string  `json:"description"`
	Balance     float64 `json:"balance" validate:"gte=0"`
	Reserved    float64 `json:"reserved" validate:"gte=0"`
	OnOrder     float64 `json:"onOrder" validate:"gte=0"`
	UnitCost    float64 `json:"unitCost,omitempty" validate:"gte=0"`
}

// Key returns the aggregation key of the record as stored (no normalization).
func (r StockRecord) Key() string {
	return BuildKey(r.Branch, r.ProductCode, r.Location)
}

// MovementRecord is one inventory transaction. Date is expected to be inside the
// analysis window already.
type MovementRecord struct {
	ProductCode      string    `json:"productCode"`
	Branch           string    `json:"branch"`
	Location         string    `json:"location"`
	MovementTypeCode string    `json:"movementTypeCode"`
	Quantity         float64   `json:"quantity"`
	Date             time.Time `json:"date"`
}

// Activity describes the qualifying outbound movements seen for one key.
type Activity struct {
	Count          int
	LastMovementAt time.Time
}

// Coverage is a number of months. It may be +Inf when stock exists and nothing
// was consumed; JSON encodes that case as the string "Infinity".
type Coverage float64

// IsUnbounded reports whether the coverage is infinite.
func (c Coverage) IsUnbounded() bool {
	return math.IsInf(float64(c), 1)
}

func (c Coverage) MarshalJSON() ([]byte, error) {
	if c.IsUnbounded() {
		return []byte(`"Infinity"`), nil
	}
	return json.Marshal(float64(c))
}

func (c *Coverage) UnmarshalJSON(data []byte) error {
	if string(data) == `"Infinity"` {
		*c = Coverage(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = Coverage(f)
	return nil
}

// EnrichedProductRecord is the per-record output of the engine.
type EnrichedProductRecord struct {
	StockRecord

	IsGeneratedDescription bool `json:"isGeneratedDescription"`

	Consumption               float64  `json:"consumption"`
	AverageMonthlyConsumption float64  `json:"averageMonthlyConsumption"`
	CoverageMonths            Coverage `json:"coverageMonths"`
	Status                    Status   `json:"status"`
	Priority                  Priority `json:"priority"`
	ReplenishmentSuggestion   float64  `json:"replenishmentSuggestion"`

	AvailableBalance  float64         `json:"availableBalance"`
	ReservedPercent   float64         `json:"reservedPercent"`
	Availability      Availability    `json:"availability"`
	MovementCount     int             `json:"movementCount"`
	LastMovementAt    *time.Time      `json:"lastMovementAt"`
	ReplenishmentCost decimal.Decimal `json:"replenishmentCost"`
}

// Options configures a single Compute call.
type Options struct {
	// PeriodMonths is the length of the analysis window; must be positive.
	PeriodMonths int
	// Strict turns an invalid stock record into an error instead of an exclusion.
	Strict bool
	// ChunkSize splits the stock records into batches with a yield between them.
	// Zero processes everything in one pass.
	ChunkSize int
}

// Result holds the enriched records in input order plus any stock records that
// were left out in non-strict mode.
type Result struct {
	Records  []EnrichedProductRecord `json:"records"`
	Excluded []ValidationError       `json:"excluded"`
}
