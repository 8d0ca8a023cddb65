package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/analytics"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/cache"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/domain"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/export"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/loader"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline/stock_coverage"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/service"
)

type AnalysisHandler struct {
	service        *service.AnalysisService
	maxUploadBytes int64
}

func NewAnalysisHandler(service *service.AnalysisService, maxUploadMB int) *AnalysisHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 64
	}
	return &AnalysisHandler{service: service, maxUploadBytes: int64(maxUploadMB) << 20}
}

func (h *AnalysisHandler) parseFilter(c *gin.Context) (domain.AnalysisFilter, error) {
	filter := domain.AnalysisFilter{
		Page:     1,
		PageSize: analytics.DefaultPageSize,
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}

	if size, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(analytics.DefaultPageSize))); err == nil && size > 0 {
		filter.PageSize = size
	}

	if raw := strings.TrimSpace(queryOrForm(c, "period_months")); raw != "" {
		months, err := strconv.Atoi(raw)
		if err != nil {
			return filter, &domain.InvalidFilterError{Param: "period_months", Value: raw}
		}
		filter.PeriodMonths = &months
	}

	if raw := strings.TrimSpace(queryOrForm(c, "strict")); raw != "" {
		strict, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, &domain.InvalidFilterError{Param: "strict", Value: raw}
		}
		filter.Strict = &strict
	}

	if raw := strings.TrimSpace(c.Query("refresh")); raw != "" {
		refresh, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, &domain.InvalidFilterError{Param: "refresh", Value: raw}
		}
		filter.Refresh = refresh
	}

	filter.Statuses = parseList(c, "status")
	filter.Priorities = parseList(c, "priority")
	filter.Availability = parseList(c, "availability")
	filter.Branches = parseList(c, "branch")
	filter.Locations = parseList(c, "location")
	filter.Search = strings.TrimSpace(c.Query("search"))

	if sortField := strings.TrimSpace(c.Query("sort_field")); sortField != "" {
		filter.SortField = strings.ToLower(sortField)
	}

	sortDir := strings.ToLower(strings.TrimSpace(c.Query("sort_direction")))
	if sortDir != "desc" {
		sortDir = "asc"
	}
	filter.SortDir = sortDir

	return filter, nil
}

// parseList supports both repeated params and comma-separated values:
//
//	?status=CRITICAL&status=LOW
//	?status=CRITICAL,LOW
func parseList(c *gin.Context, param string) []string {
	var values []string
	seen := make(map[string]struct{})
	for _, raw := range c.QueryArray(param) {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			values = append(values, part)
		}
	}
	return values
}

func queryOrForm(c *gin.Context, key string) string {
	if v, ok := c.GetQuery(key); ok {
		return v
	}
	if c.Request.Method == http.MethodPost {
		return c.PostForm(key)
	}
	return ""
}

// AnalyzeUpload handles POST /inventory/analysis with multipart files "stock" and "movements".
func (h *AnalysisHandler) AnalyzeUpload(c *gin.Context) {
	filter, upload, ok := h.readUploadRequest(c)
	if !ok {
		return
	}

	resp, err := h.service.AnalyzeUpload(c.Request.Context(), upload, filter)
	if err != nil {
		h.fail(c, "failed to analyze upload", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AnalyzeDatabase handles GET /inventory/analysis.
func (h *AnalysisHandler) AnalyzeDatabase(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		h.fail(c, "invalid filter", err)
		return
	}

	resp, err := h.service.AnalyzeDatabase(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "failed to analyze inventory", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportUpload handles POST /inventory/analysis/export.
func (h *AnalysisHandler) ExportUpload(c *gin.Context) {
	filter, upload, ok := h.readUploadRequest(c)
	if !ok {
		return
	}

	entry, err := h.service.RunUpload(c.Request.Context(), upload, filter)
	if err != nil {
		h.fail(c, "failed to analyze upload", err)
		return
	}

	h.writeExport(c, entry, filter)
}

// ExportDatabase handles GET /inventory/analysis/export.
func (h *AnalysisHandler) ExportDatabase(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		h.fail(c, "invalid filter", err)
		return
	}

	entry, err := h.service.RunDatabase(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "failed to analyze inventory", err)
		return
	}

	h.writeExport(c, entry, filter)
}

func (h *AnalysisHandler) GetBranches(c *gin.Context) {
	branches, err := h.service.ListBranches(c.Request.Context())
	if err != nil {
		h.fail(c, "failed to fetch branches", err)
		return
	}

	c.JSON(http.StatusOK, branches)
}

func (h *AnalysisHandler) GetLocations(c *gin.Context) {
	locations, err := h.service.ListLocations(c.Request.Context(), c.Query("branch"))
	if err != nil {
		h.fail(c, "failed to fetch locations", err)
		return
	}

	c.JSON(http.StatusOK, locations)
}

// ClearCache handles DELETE /inventory/cache.
func (h *AnalysisHandler) ClearCache(c *gin.Context) {
	if err := h.service.ClearCache(c.Request.Context()); err != nil {
		h.fail(c, "failed to clear cache", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AnalysisHandler) readUploadRequest(c *gin.Context) (domain.AnalysisFilter, service.Upload, bool) {
	var upload service.Upload

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	if _, err := c.MultipartForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large", "details": err.Error()})
			return domain.AnalysisFilter{}, upload, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data", "details": err.Error()})
		return domain.AnalysisFilter{}, upload, false
	}

	filter, err := h.parseFilter(c)
	if err != nil {
		h.fail(c, "invalid filter", err)
		return filter, upload, false
	}

	var errs []string
	if upload.StockName, upload.Stock, err = readFormFile(c, "stock"); err != nil {
		errs = append(errs, err.Error())
	}
	if upload.MovementsName, upload.Movements, err = readFormFile(c, "movements"); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stock and movements files are required", "details": strings.Join(errs, "; ")})
		return filter, upload, false
	}

	return filter, upload, true
}

func readFormFile(c *gin.Context, field string) (string, []byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", field, err)
	}
	if !loader.IsSupported(header.Filename) {
		return "", nil, fmt.Errorf("%s: %s: %w", field, header.Filename, loader.ErrUnsupportedFormat)
	}
	data, err := readMultipart(header)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", field, err)
	}
	return header.Filename, data, nil
}

func readMultipart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *AnalysisHandler) writeExport(c *gin.Context, entry *cache.AnalysisEntry, filter domain.AnalysisFilter) {
	format := export.Format(strings.ToLower(c.DefaultQuery("format", string(export.FormatXLSX))))
	if format != export.FormatCSV && format != export.FormatXLSX {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid export format", "details": string(format)})
		return
	}

	records, err := h.service.Select(entry, filter)
	if err != nil {
		h.fail(c, "invalid filter", err)
		return
	}

	filename := fmt.Sprintf("analise_estoque_%s.%s", time.Now().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Run-ID", entry.Run.ID)
	c.Status(http.StatusOK)
	c.Writer.Header().Set("Content-Type", format.ContentType())

	if err := export.Write(c.Writer, format, records, analytics.Summarize(records)); err != nil {
		log.Error().Err(err).Str("run_id", entry.Run.ID).Msg("Failed to write export")
		_ = c.Error(err)
	}
}

func (h *AnalysisHandler) fail(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

func statusFor(err error) int {
	var filterErr *domain.InvalidFilterError
	switch {
	case errors.As(err, &filterErr),
		errors.Is(err, stock_coverage.ErrInvalidConfiguration),
		errors.Is(err, stock_coverage.ErrInvalidRecord),
		errors.Is(err, loader.ErrUnsupportedFormat),
		errors.Is(err, loader.ErrEmptyFile),
		errors.Is(err, loader.ErrMissingColumn),
		errors.Is(err, loader.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
