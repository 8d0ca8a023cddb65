package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/config"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/domain"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/service"
)

const (
	stockCSV = "filial;codigo;local;descricao;saldo;reserva;custo\n" +
		"01;a1;L1;Parafuso;10;0;2,50\n" +
		"01;B2;L1;Porca;0;0;1\n"
	movementsCSV = "filial;codigo;local;tm;quantidade;data\n" +
		"01;A1;L1;RE1;40;01/03/2024\n"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	svc := service.NewAnalysisService(nil, nil, nil, config.AnalysisConfig{PeriodMonths: 4, TopN: 5})
	return NewRouter(&Services{AnalysisService: svc, MaxUploadMB: 1}, nil)
}

func multipartBody(t *testing.T, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for field, file := range files {
		part, err := w.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func uploadRequest(t *testing.T, target string) *http.Request {
	body, contentType := multipartBody(t, map[string][2]string{
		"stock":     {"estoque.csv", stockCSV},
		"movements": {"movimentos.csv", movementsCSV},
	})
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAnalyzeUploadEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, uploadRequest(t, "/api/v1/inventory/analysis?status=CRITICAL,LOW&sort_field=product_code"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp domain.AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "A1", resp.Items[0].ProductCode)
	assert.Equal(t, 2, resp.Summary.TotalProducts)
	assert.Equal(t, "upload", resp.Run.Source)
}

func TestAnalyzeUploadReportsUnboundedCoverage(t *testing.T) {
	stock := "filial;codigo;local;saldo\n01;A1;L1;10\n"
	movements := "filial;codigo;local;tm;quantidade\n"
	body, contentType := multipartBody(t, map[string][2]string{
		"stock":     {"estoque.csv", stock},
		"movements": {"movimentos.csv", movements},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/analysis", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"coverageMonths":"Infinity"`)
	assert.Contains(t, rec.Body.String(), `"status":"NO_MOVEMENT"`)
}

func TestAnalyzeUploadRequiresBothFiles(t *testing.T) {
	body, contentType := multipartBody(t, map[string][2]string{
		"stock": {"estoque.csv", stockCSV},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/analysis", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "movements")
}

func TestAnalyzeUploadMissingColumn(t *testing.T) {
	body, contentType := multipartBody(t, map[string][2]string{
		"stock":     {"estoque.csv", "filial;codigo;saldo\n01;A1;10\n"},
		"movements": {"movimentos.csv", movementsCSV},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/analysis", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "location")
}

func TestAnalyzeUploadInvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"unknown status", "/api/v1/inventory/analysis?status=BROKEN"},
		{"bad period", "/api/v1/inventory/analysis?period_months=abc"},
		{"zero period", "/api/v1/inventory/analysis?period_months=0"},
		{"negative period", "/api/v1/inventory/analysis?period_months=-2"},
		{"bad strict", "/api/v1/inventory/analysis?strict=maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestRouter().ServeHTTP(rec, uploadRequest(t, tt.target))

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestAnalyzeUploadRejectsNonFiniteBalance(t *testing.T) {
	stock := "filial;codigo;local;descricao;saldo;reserva;custo\n" +
		"01;A1;L1;Parafuso;NaN;0;2,50\n" +
		"01;B2;L1;Porca;5;0;1\n"
	body, contentType := multipartBody(t, map[string][2]string{
		"stock":     {"estoque.csv", stock},
		"movements": {"movimentos.csv", movementsCSV},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/analysis", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "NaN")
}

func TestAnalyzeUploadHugePage(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, uploadRequest(t, "/api/v1/inventory/analysis?page=9223372036854775807"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp domain.AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
	assert.Equal(t, 2, resp.Total)
}

func TestAnalyzeUploadTooLarge(t *testing.T) {
	big := stockCSV + strings.Repeat("01;X;L1;x;1;0;1\n", 1<<16)
	body, contentType := multipartBody(t, map[string][2]string{
		"stock":     {"estoque.csv", big},
		"movements": {"movimentos.csv", movementsCSV},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/analysis", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDatabaseEndpointsWithoutDatabase(t *testing.T) {
	router := newTestRouter()
	for _, target := range []string{
		"/api/v1/inventory/analysis",
		"/api/v1/inventory/analysis/export",
		"/api/v1/inventory/branches",
		"/api/v1/inventory/locations?branch=01",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestClearCache(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/inventory/cache", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestExportUploadCSV(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, uploadRequest(t, "/api/v1/inventory/analysis/export?format=csv"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 3)
}

func TestExportUploadXLSX(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, uploadRequest(t, "/api/v1/inventory/analysis/export"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Análise")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExportUploadRejectsUnknownFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, uploadRequest(t, "/api/v1/inventory/analysis/export?format=pdf"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, allowAll := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.False(t, allowAll)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	_, allowAll = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, allowAll)
}
