package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

// InventoryFilter narrows the Protheus tables to some branches and locations.
// Empty slices mean no restriction.
type InventoryFilter struct {
	Branches  []string
	Locations []string
}

type stockRow struct {
	Branch      string  `db:"branch"`
	ProductCode string  `db:"product_code"`
	Location    string  `db:"location"`
	Description string  `db:"description"`
	Balance     float64 `db:"balance"`
	Reserved    float64 `db:"reserved"`
	OnOrder     float64 `db:"on_order"`
	UnitCost    float64 `db:"unit_cost"`
}

type movementRow struct {
	Branch           string    `db:"branch"`
	ProductCode      string    `db:"product_code"`
	Location         string    `db:"location"`
	MovementTypeCode string    `db:"movement_type_code"`
	Quantity         float64   `db:"quantity"`
	Date             time.Time `db:"date"`
}

const listStockQuery = `
	SELECT
		TRIM(sb2.b2_filial) AS branch,
		TRIM(sb2.b2_cod) AS product_code,
		TRIM(sb2.b2_local) AS location,
		COALESCE(TRIM(sb1.b1_desc), '') AS description,
		COALESCE(sb2.b2_qatu, 0) AS balance,
		COALESCE(sb2.b2_reserva, 0) AS reserved,
		COALESCE(sb2.b2_qpedven, 0) AS on_order,
		COALESCE(sb2.b2_cm1, 0) AS unit_cost
	FROM sb2010 sb2
	LEFT JOIN sb1010 sb1
		ON sb1.b1_filial = sb2.b2_filial
		AND sb1.b1_cod = sb2.b2_cod
		AND sb1.d_e_l_e_t_ = ' '
	WHERE sb2.d_e_l_e_t_ = ' '
		AND ($1::text[] IS NULL OR TRIM(sb2.b2_filial) = ANY($1::text[]))
		AND ($2::text[] IS NULL OR TRIM(sb2.b2_local) = ANY($2::text[]))
	ORDER BY sb2.b2_filial, sb2.b2_cod, sb2.b2_local
`

const listMovementsQuery = `
	SELECT
		TRIM(sd3.d3_filial) AS branch,
		TRIM(sd3.d3_cod) AS product_code,
		TRIM(sd3.d3_local) AS location,
		TRIM(sd3.d3_tm) AS movement_type_code,
		COALESCE(sd3.d3_quant, 0) AS quantity,
		sd3.d3_emissao AS date
	FROM sd3010 sd3
	WHERE sd3.d_e_l_e_t_ = ' '
		AND sd3.d3_emissao >= $3
		AND ($1::text[] IS NULL OR TRIM(sd3.d3_filial) = ANY($1::text[]))
		AND ($2::text[] IS NULL OR TRIM(sd3.d3_local) = ANY($2::text[]))
`

const listBranchesQuery = `
	SELECT DISTINCT TRIM(b2_filial) AS branch
	FROM sb2010
	WHERE d_e_l_e_t_ = ' ' AND TRIM(b2_filial) <> ''
	ORDER BY branch
`

const listLocationsQuery = `
	SELECT DISTINCT TRIM(b2_local) AS location
	FROM sb2010
	WHERE d_e_l_e_t_ = ' ' AND TRIM(b2_local) <> ''
		AND ($1 = '' OR TRIM(b2_filial) = $1)
	ORDER BY location
`

type InventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// ListStock returns the current stock balances.
func (r *InventoryRepository) ListStock(ctx context.Context, filter InventoryFilter) ([]stock_coverage.StockRecord, error) {
	return listStock(ctx, r.db, filter)
}

// ListMovements returns every movement dated on or after since.
func (r *InventoryRepository) ListMovements(ctx context.Context, filter InventoryFilter, since time.Time) ([]stock_coverage.MovementRecord, error) {
	return listMovements(ctx, r.db, filter, since)
}

func (r *InventoryRepository) ListBranches(ctx context.Context) ([]string, error) {
	branches := []string{}
	if err := sqlx.SelectContext(ctx, r.db, &branches, listBranchesQuery); err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, nil
}

func (r *InventoryRepository) ListLocations(ctx context.Context, branch string) ([]string, error) {
	locations := []string{}
	if err := sqlx.SelectContext(ctx, r.db, &locations, listLocationsQuery, strings.TrimSpace(branch)); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

// LoadInputs reads stock and movements from one snapshot.
func (r *InventoryRepository) LoadInputs(ctx context.Context, filter InventoryFilter, since time.Time) (*pipeline.Inputs, error) {
	inputs := &pipeline.Inputs{}
	err := r.db.WithReadTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if inputs.Stock, err = listStock(ctx, tx, filter); err != nil {
			return err
		}
		inputs.Movements, err = listMovements(ctx, tx, filter, since)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inputs, nil
}

func listStock(ctx context.Context, q sqlx.QueryerContext, filter InventoryFilter) ([]stock_coverage.StockRecord, error) {
	var rows []stockRow
	if err := sqlx.SelectContext(ctx, q, &rows, listStockQuery, textArray(filter.Branches), textArray(filter.Locations)); err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}

	records := make([]stock_coverage.StockRecord, len(rows))
	for i, row := range rows {
		records[i] = stock_coverage.StockRecord{
			Branch:      row.Branch,
			ProductCode: row.ProductCode,
			Location:    row.Location,
			Description: row.Description,
			Balance:     row.Balance,
			Reserved:    row.Reserved,
			OnOrder:     row.OnOrder,
			UnitCost:    row.UnitCost,
		}
	}
	return records, nil
}

func listMovements(ctx context.Context, q sqlx.QueryerContext, filter InventoryFilter, since time.Time) ([]stock_coverage.MovementRecord, error) {
	var rows []movementRow
	if err := sqlx.SelectContext(ctx, q, &rows, listMovementsQuery, textArray(filter.Branches), textArray(filter.Locations), since); err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}

	records := make([]stock_coverage.MovementRecord, len(rows))
	for i, row := range rows {
		records[i] = stock_coverage.MovementRecord{
			Branch:           row.Branch,
			ProductCode:      row.ProductCode,
			Location:         row.Location,
			MovementTypeCode: row.MovementTypeCode,
			Quantity:         row.Quantity,
			Date:             row.Date,
		}
	}
	return records, nil
}

// textArray passes nil for an empty filter so the query's IS NULL branch applies.
func textArray(values []string) interface{} {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return pq.Array(cleaned)
}

// WindowStart returns the first day included in an analysis window of
// periodMonths ending at now.
func WindowStart(now time.Time, periodMonths int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, -periodMonths, 0)
}

// Source adapts the repository to pipeline.Source for one filter and window.
type Source struct {
	Repo   *InventoryRepository
	Filter InventoryFilter
	Since  time.Time
}

func (s *Source) Name() string { return "protheus" }

func (s *Source) Load(ctx context.Context) (*pipeline.Inputs, error) {
	return s.Repo.LoadInputs(ctx, s.Filter, s.Since)
}
