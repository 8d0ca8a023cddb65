package stock_coverage

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultOutboundCodes are the movement type codes counted as consumption.
var DefaultOutboundCodes = []string{"RE1", "010", "600", "999", "499", "501", "502", "DE0", "DE1", "DE2"}

// BuildKey joins the natural key parts as "{branch}-{productCode}-{location}".
func BuildKey(branch, productCode, location string) string {
	return branch + "-" + productCode + "-" + location
}

// NormalizeProductCode trims and upper-cases a product code.
func NormalizeProductCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeKeyPart trims branch and location values. ERP exports pad them with
// spaces but their case is significant.
func NormalizeKeyPart(value string) string {
	return strings.TrimSpace(value)
}

// ConsumptionAggregator sums outbound movement quantities per natural key.
type ConsumptionAggregator struct {
	outbound map[string]struct{}
}

// NewConsumptionAggregator builds an aggregator. With no codes it uses
// DefaultOutboundCodes.
func NewConsumptionAggregator(codes ...string) *ConsumptionAggregator {
	if len(codes) == 0 {
		codes = DefaultOutboundCodes
	}

	outbound := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		outbound[normalizeMovementCode(code)] = struct{}{}
	}

	return &ConsumptionAggregator{outbound: outbound}
}

// IsOutbound reports whether the movement type code counts as consumption.
func (a *ConsumptionAggregator) IsOutbound(code string) bool {
	_, ok := a.outbound[normalizeMovementCode(code)]
	return ok
}

// Aggregate returns total outbound quantity per key. Keys without a qualifying
// movement are absent. Quantities are summed as decimals so the totals do not
// depend on movement order.
func (a *ConsumptionAggregator) Aggregate(movements []MovementRecord) map[string]float64 {
	totals := make(map[string]decimal.Decimal)
	for i := range movements {
		key, ok := a.qualify(&movements[i])
		if !ok {
			continue
		}
		totals[key] = totals[key].Add(decimal.NewFromFloat(movements[i].Quantity))
	}

	consumption := make(map[string]float64, len(totals))
	for key, total := range totals {
		consumption[key] = total.InexactFloat64()
	}
	return consumption
}

// AggregateActivity counts qualifying movements per key and tracks the latest
// movement date.
func (a *ConsumptionAggregator) AggregateActivity(movements []MovementRecord) map[string]Activity {
	activity := make(map[string]Activity)
	for i := range movements {
		m := &movements[i]
		key, ok := a.qualify(m)
		if !ok {
			continue
		}

		current := activity[key]
		current.Count++
		if m.Date.After(current.LastMovementAt) {
			current.LastMovementAt = m.Date
		}
		activity[key] = current
	}
	return activity
}

func (a *ConsumptionAggregator) qualify(m *MovementRecord) (string, bool) {
	code := NormalizeProductCode(m.ProductCode)
	branch := NormalizeKeyPart(m.Branch)
	location := NormalizeKeyPart(m.Location)
	if code == "" || branch == "" || location == "" {
		return "", false
	}
	if !a.IsOutbound(m.MovementTypeCode) {
		return "", false
	}
	if !(m.Quantity > 0) || math.IsInf(m.Quantity, 1) {
		return "", false
	}
	return BuildKey(branch, code, location), true
}

func normalizeMovementCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var defaultAggregator = NewConsumptionAggregator()

// Aggregate sums outbound consumption per key using DefaultOutboundCodes.
func Aggregate(movements []MovementRecord) map[string]float64 {
	return defaultAggregator.Aggregate(movements)
}
