package analytics

import (
	"sort"
	"strings"

	sc "github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// View filters, sorts and paginates enriched records for display
type View struct {
	Statuses      []sc.Status
	Priorities    []sc.Priority
	Availability  []sc.Availability
	Branches      []string
	Locations     []string
	Search        string
	SortField     string
	SortDirection string
	Page          int
	PageSize      int
}

// Page is one page of a filtered, sorted record list
type Page struct {
	Items      []sc.EnrichedProductRecord `json:"items"`
	Total      int                        `json:"total"`
	Page       int                        `json:"page"`
	PageSize   int                        `json:"page_size"`
	TotalPages int                        `json:"total_pages"`
}

// Normalize applies paging defaults and bounds.
func (v View) Normalize() View {
	if v.Page < 1 {
		v.Page = 1
	}
	if v.PageSize < 1 {
		v.PageSize = DefaultPageSize
	}
	if v.PageSize > MaxPageSize {
		v.PageSize = MaxPageSize
	}
	v.SortField = strings.ToLower(strings.TrimSpace(v.SortField))
	if strings.ToLower(strings.TrimSpace(v.SortDirection)) == "desc" {
		v.SortDirection = "desc"
	} else {
		v.SortDirection = "asc"
	}
	v.Search = strings.ToLower(strings.TrimSpace(v.Search))
	return v
}

// Select filters and sorts records without paginating. The input slice is not
// modified.
func Select(records []sc.EnrichedProductRecord, v View) []sc.EnrichedProductRecord {
	v = v.Normalize()

	filtered := make([]sc.EnrichedProductRecord, 0, len(records))
	for i := range records {
		if v.matches(&records[i]) {
			filtered = append(filtered, records[i])
		}
	}

	if less := lessFunc(v.SortField); less != nil {
		desc := v.SortDirection == "desc"
		sort.SliceStable(filtered, func(i, j int) bool {
			if desc {
				return less(&filtered[j], &filtered[i])
			}
			return less(&filtered[i], &filtered[j])
		})
	}

	return filtered
}

// ApplyView returns the requested page. The input slice is not modified.
func ApplyView(records []sc.EnrichedProductRecord, v View) Page {
	v = v.Normalize()
	filtered := Select(records, v)

	page := Page{
		Items:    []sc.EnrichedProductRecord{},
		Total:    len(filtered),
		Page:     v.Page,
		PageSize: v.PageSize,
	}
	page.TotalPages = (page.Total + v.PageSize - 1) / v.PageSize

	if v.Page > page.TotalPages {
		return page
	}
	start := (v.Page - 1) * v.PageSize
	end := min(start+v.PageSize, len(filtered))
	page.Items = filtered[start:end]
	return page
}

func (v View) matches(rec *sc.EnrichedProductRecord) bool {
	if len(v.Statuses) > 0 && !contains(v.Statuses, rec.Status) {
		return false
	}
	if len(v.Priorities) > 0 && !contains(v.Priorities, rec.Priority) {
		return false
	}
	if len(v.Availability) > 0 && !contains(v.Availability, rec.Availability) {
		return false
	}
	if len(v.Branches) > 0 && !contains(v.Branches, rec.Branch) {
		return false
	}
	if len(v.Locations) > 0 && !contains(v.Locations, rec.Location) {
		return false
	}
	if v.Search != "" {
		if !strings.Contains(strings.ToLower(rec.ProductCode), v.Search) &&
			!strings.Contains(strings.ToLower(rec.Description), v.Search) {
			return false
		}
	}
	return true
}

func contains[T comparable](values []T, target T) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

type recordLess func(a, b *sc.EnrichedProductRecord) bool

func lessFunc(field string) recordLess {
	switch field {
	case "product_code", "code":
		return func(a, b *sc.EnrichedProductRecord) bool { return a.ProductCode < b.ProductCode }
	case "description":
		return func(a, b *sc.EnrichedProductRecord) bool {
			return strings.ToLower(a.Description) < strings.ToLower(b.Description)
		}
	case "branch":
		return func(a, b *sc.EnrichedProductRecord) bool { return a.Branch < b.Branch }
	case "location":
		return func(a, b *sc.EnrichedProductRecord) bool { return a.Location < b.Location }
	case "balance":
		return func(a, b *sc.EnrichedProductRecord) bool { return a.Balance < b.Balance }
	case "available_balance":
		return func(a, b *sc.EnrichedProductRecord) bool { return a.AvailableBalance < b.AvailableBalance }
	case "consumption":
		return func(a, b *sc.EnrichedProductRecord) bool { return a.Consumption < b.Consumption }
	case "average_monthly_consumption":
		return func(a, b *sc.EnrichedProductRecord) bool {
			return a.AverageMonthlyConsumption < b.AverageMonthlyConsumption
		}
	case "coverage_months", "coverage":
		return func(a, b *sc.EnrichedProductRecord) bool { return a.CoverageMonths < b.CoverageMonths }
	case "replenishment_suggestion", "replenishment":
		return func(a, b *sc.EnrichedProductRecord) bool {
			return a.ReplenishmentSuggestion < b.ReplenishmentSuggestion
		}
	case "replenishment_cost":
		return func(a, b *sc.EnrichedProductRecord) bool { return a.ReplenishmentCost.LessThan(b.ReplenishmentCost) }
	case "status":
		return func(a, b *sc.EnrichedProductRecord) bool { return statusRank(a.Status) < statusRank(b.Status) }
	case "priority":
		return func(a, b *sc.EnrichedProductRecord) bool {
			return priorityRank(a.Priority) < priorityRank(b.Priority)
		}
	default:
		return nil
	}
}

func statusRank(s sc.Status) int {
	for i, status := range sc.Statuses {
		if status == s {
			return i
		}
	}
	return len(sc.Statuses)
}

func priorityRank(p sc.Priority) int {
	for i, priority := range sc.Priorities {
		if priority == p {
			return i
		}
	}
	return len(sc.Priorities)
}
