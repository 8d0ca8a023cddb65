package stock_coverage

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	criticalCoverageMonths = 1
	lowCoverageMonths      = 2
	excessCoverageMonths   = 6

	lowStockThreshold        = 10
	highReservationThreshold = 0.8
)

// CoverageCalculator derives the metrics of a single stock record.
type CoverageCalculator struct {
	periodMonths int
}

// NewCoverageCalculator creates a calculator for an analysis window of
// periodMonths. The caller guarantees periodMonths > 0.
func NewCoverageCalculator(periodMonths int) *CoverageCalculator {
	return &CoverageCalculator{periodMonths: periodMonths}
}

// Calculate enriches an already normalized stock record with its consumption
// and activity.
func (cc *CoverageCalculator) Calculate(rec StockRecord, consumption float64, activity Activity) EnrichedProductRecord {
	out := EnrichedProductRecord{StockRecord: rec}
	period := float64(cc.periodMonths)

	// 1. Description fallback
	if rec.Description == "" {
		out.Description = "Produto " + rec.ProductCode
		out.IsGeneratedDescription = true
	}

	// 2. Consumption over the window
	out.Consumption = consumption

	// 3. Average monthly consumption
	avg := 0.0
	if consumption > 0 {
		avg = consumption / period
	}
	out.AverageMonthlyConsumption = avg

	// 4. Coverage in months
	out.CoverageMonths = Coverage(coverageMonths(rec.Balance, avg))

	// 5. Status and priority
	out.Status, out.Priority = Classify(consumption, float64(out.CoverageMonths))

	// 6. Replenishment = max(0, avg × period - balance)
	out.ReplenishmentSuggestion = math.Max(0, avg*period-rec.Balance)

	// 7. Replenishment cost at unit cost, two decimals
	out.ReplenishmentCost = replenishmentCost(out.ReplenishmentSuggestion, rec.UnitCost)

	// 8. Availability
	out.AvailableBalance = rec.Balance - rec.Reserved
	if rec.Balance > 0 {
		out.ReservedPercent = roundFloat(rec.Reserved/rec.Balance*100, 2)
	}
	out.Availability = classifyAvailability(rec.Balance, rec.Reserved, out.AvailableBalance)

	// 9. Movement activity
	out.MovementCount = activity.Count
	if !activity.LastMovementAt.IsZero() {
		last := activity.LastMovementAt
		out.LastMovementAt = &last
	}

	return out
}

func replenishmentCost(quantity, unitCost float64) decimal.Decimal {
	if !isFinite(quantity) || !isFinite(unitCost) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitCost)).Round(2)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func coverageMonths(balance, avg float64) float64 {
	switch {
	case avg > 0:
		return balance / avg
	case balance > 0:
		return math.Inf(1)
	default:
		return 0
	}
}

// Classify maps consumption and coverage to a status and priority. The first
// matching rule wins.
func Classify(consumption, coverage float64) (Status, Priority) {
	switch {
	case consumption == 0:
		return StatusNoMovement, PriorityLow
	case coverage < criticalCoverageMonths:
		return StatusCritical, PriorityHigh
	case coverage < lowCoverageMonths:
		return StatusLow, PriorityMedium
	case coverage > excessCoverageMonths:
		return StatusExcess, PriorityLow
	default:
		return StatusAdequate, PriorityLow
	}
}

func classifyAvailability(balance, reserved, available float64) Availability {
	switch {
	case available <= 0:
		return AvailabilityOutOfStock
	case available <= lowStockThreshold:
		return AvailabilityLowStock
	case reserved > balance*highReservationThreshold:
		return AvailabilityHighReservation
	default:
		return AvailabilityAvailable
	}
}
