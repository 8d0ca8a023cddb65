package export

import (
	"strconv"

	sc "github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

// column renders one field of an enriched record. text is used for CSV; cell
// returns a typed value for spreadsheets.
type column struct {
	header string
	text   func(r *sc.EnrichedProductRecord) string
	cell   func(r *sc.EnrichedProductRecord) any
}

func numberColumn(header string, decimals int, value func(r *sc.EnrichedProductRecord) float64) column {
	return column{
		header: header,
		text:   func(r *sc.EnrichedProductRecord) string { return formatBRFloat(value(r), decimals) },
		cell:   func(r *sc.EnrichedProductRecord) any { return value(r) },
	}
}

func textColumn(header string, value func(r *sc.EnrichedProductRecord) string) column {
	return column{
		header: header,
		text:   value,
		cell:   func(r *sc.EnrichedProductRecord) any { return value(r) },
	}
}

var columns = []column{
	textColumn("Filial", func(r *sc.EnrichedProductRecord) string { return r.Branch }),
	textColumn("Código", func(r *sc.EnrichedProductRecord) string { return r.ProductCode }),
	textColumn("Local", func(r *sc.EnrichedProductRecord) string { return r.Location }),
	textColumn("Descrição", func(r *sc.EnrichedProductRecord) string { return r.Description }),
	numberColumn("Saldo", 2, func(r *sc.EnrichedProductRecord) float64 { return r.Balance }),
	numberColumn("Reservado", 2, func(r *sc.EnrichedProductRecord) float64 { return r.Reserved }),
	numberColumn("Disponível", 2, func(r *sc.EnrichedProductRecord) float64 { return r.AvailableBalance }),
	numberColumn("Em pedido", 2, func(r *sc.EnrichedProductRecord) float64 { return r.OnOrder }),
	numberColumn("Consumo", 2, func(r *sc.EnrichedProductRecord) float64 { return r.Consumption }),
	numberColumn("Média mensal", 2, func(r *sc.EnrichedProductRecord) float64 { return r.AverageMonthlyConsumption }),
	{
		header: "Cobertura (meses)",
		text:   func(r *sc.EnrichedProductRecord) string { return formatCoverage(r.CoverageMonths) },
		cell: func(r *sc.EnrichedProductRecord) any {
			if r.CoverageMonths.IsUnbounded() {
				return unboundedCoverage
			}
			return float64(r.CoverageMonths)
		},
	},
	textColumn("Status", func(r *sc.EnrichedProductRecord) string { return r.Status.Label() }),
	textColumn("Prioridade", func(r *sc.EnrichedProductRecord) string { return r.Priority.Label() }),
	textColumn("Disponibilidade", func(r *sc.EnrichedProductRecord) string { return r.Availability.Label() }),
	numberColumn("% Reservado", 2, func(r *sc.EnrichedProductRecord) float64 { return r.ReservedPercent }),
	numberColumn("Sugestão de reposição", 2, func(r *sc.EnrichedProductRecord) float64 { return r.ReplenishmentSuggestion }),
	numberColumn("Custo unitário", 2, func(r *sc.EnrichedProductRecord) float64 { return r.UnitCost }),
	numberColumn("Custo de reposição", 2, func(r *sc.EnrichedProductRecord) float64 { return r.ReplenishmentCost.InexactFloat64() }),
	{
		header: "Movimentos",
		text:   func(r *sc.EnrichedProductRecord) string { return strconv.Itoa(r.MovementCount) },
		cell:   func(r *sc.EnrichedProductRecord) any { return r.MovementCount },
	},
	textColumn("Última movimentação", func(r *sc.EnrichedProductRecord) string { return formatDate(r.LastMovementAt) }),
	{
		header: "Descrição gerada",
		text: func(r *sc.EnrichedProductRecord) string {
			if r.IsGeneratedDescription {
				return "Sim"
			}
			return "Não"
		},
		cell: func(r *sc.EnrichedProductRecord) any { return r.IsGeneratedDescription },
	},
}

func headers() []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = col.header
	}
	return out
}
