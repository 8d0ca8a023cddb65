package domain

import (
	"fmt"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/analytics"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
)

// AnalysisFilter represents the query options of an inventory analysis request.
// PeriodMonths and Strict are nil when the request left them out.
type AnalysisFilter struct {
	PeriodMonths *int     `json:"period_months,omitempty"`
	Strict       *bool    `json:"strict,omitempty"`
	Statuses     []string `json:"status"`
	Priorities   []string `json:"priority"`
	Availability []string `json:"availability"`
	Branches     []string `json:"branch"`
	Locations    []string `json:"location"`
	Search       string   `json:"search"`
	SortField    string   `json:"sort_field"`
	SortDir      string   `json:"sort_direction"`
	Page         int      `json:"page"`
	PageSize     int      `json:"page_size"`
	Refresh      bool     `json:"refresh"`
}

// InvalidFilterError reports a filter value that does not name a known code.
type InvalidFilterError struct {
	Param string
	Value string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid %s filter value %q", e.Param, e.Value)
}

// View converts the display part of the filter. Status, priority and
// availability accept codes or their labels.
func (f AnalysisFilter) View() (analytics.View, error) {
	view := analytics.View{
		Branches:      f.Branches,
		Locations:     f.Locations,
		Search:        f.Search,
		SortField:     f.SortField,
		SortDirection: f.SortDir,
		Page:          f.Page,
		PageSize:      f.PageSize,
	}

	for _, v := range f.Statuses {
		status, ok := stock_coverage.ParseStatus(v)
		if !ok {
			return view, &InvalidFilterError{Param: "status", Value: v}
		}
		view.Statuses = append(view.Statuses, status)
	}
	for _, v := range f.Priorities {
		priority, ok := stock_coverage.ParsePriority(v)
		if !ok {
			return view, &InvalidFilterError{Param: "priority", Value: v}
		}
		view.Priorities = append(view.Priorities, priority)
	}
	for _, v := range f.Availability {
		availability, ok := stock_coverage.ParseAvailability(v)
		if !ok {
			return view, &InvalidFilterError{Param: "availability", Value: v}
		}
		view.Availability = append(view.Availability, availability)
	}

	return view.Normalize(), nil
}

// RunConfig returns the engine settings requested by the filter, taking
// anything it does not set from defaults.
func (f AnalysisFilter) RunConfig(defaults pipeline.RunConfig) pipeline.RunConfig {
	cfg := defaults
	if f.PeriodMonths != nil {
		cfg.PeriodMonths = *f.PeriodMonths
	}
	if f.Strict != nil {
		cfg.Strict = *f.Strict
	}
	return cfg
}

// AnalysisResponse is one page of enriched records plus run-wide aggregates
type AnalysisResponse struct {
	Items            []stock_coverage.EnrichedProductRecord `json:"items"`
	Total            int                                    `json:"total"`
	Page             int                                    `json:"page"`
	PageSize         int                                    `json:"page_size"`
	TotalPages       int                                    `json:"total_pages"`
	Summary          analytics.Summary                      `json:"summary"`
	TopReplenishment []stock_coverage.EnrichedProductRecord `json:"top_replenishment"`
	Integrity        analytics.IntegrityReport              `json:"integrity"`
	Excluded         []stock_coverage.ValidationError       `json:"excluded"`
	Run              pipeline.RunSummary                    `json:"run"`
}

// OptionList wraps a list of filter options
type OptionList struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}
