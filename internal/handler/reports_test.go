package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/store"
)

func reportsMux(t *testing.T) (*http.ServeMux, *store.ReportStore, *int) {
	t.Helper()
	reportStore := store.NewReportStore()
	changes := 0
	h := NewReportsHandler(reportStore, func() { changes++ }, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/reports", h.ListReports)
	mux.HandleFunc("POST /v1/reports", h.CreateReport)
	mux.HandleFunc("GET /v1/reports/{id}", h.GetReport)
	mux.HandleFunc("PUT /v1/reports/{id}", h.UpdateReport)
	mux.HandleFunc("DELETE /v1/reports/{id}", h.DeleteReport)
	return mux, reportStore, &changes
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateReport(t *testing.T) {
	mux, reportStore, changes := reportsMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/v1/reports", `{
		"street": "אבן גבירול",
		"segmentIds": ["1", "2"],
		"note": "תמרור חדש ליד מספר 70"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var report domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, domain.ReportPending, report.Status)
	assert.Equal(t, 1, reportStore.Count())
	assert.Equal(t, 1, *changes)
}

func TestCreateReportRejectsMissingStreet(t *testing.T) {
	mux, reportStore, changes := reportsMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/v1/reports", `{"note": "no street"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, reportStore.Count())
	assert.Equal(t, 0, *changes)
}

func TestCreateReportRejectsBadDecodedHours(t *testing.T) {
	mux, _, _ := reportsMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/v1/reports", `{
		"street": "אלנבי",
		"decoded": {"sunThu": [{"start": 7, "end": 25}]}
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateReportToDecoded(t *testing.T) {
	mux, reportStore, changes := reportsMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/v1/reports", `{"street": "אלנבי"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Decoded status without a schedule payload is refused.
	rec = doJSON(t, mux, http.MethodPut, "/v1/reports/"+created.ID, `{"status": "decoded"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPut, "/v1/reports/"+created.ID, `{
		"status": "decoded",
		"decoded": {"sunThu": [{"start": 6, "end": 19}]}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	updated, ok := reportStore.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, domain.ReportDecoded, updated.Status)
	require.NotNil(t, updated.Decoded)
	assert.Equal(t, 2, *changes)
}

func TestUpdateReportUnknownID(t *testing.T) {
	mux, _, _ := reportsMux(t)

	rec := doJSON(t, mux, http.MethodPut, "/v1/reports/nope", `{"status": "rejected"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteReport(t *testing.T) {
	mux, reportStore, _ := reportsMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/v1/reports", `{"street": "דיזנגוף"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, mux, http.MethodDelete, "/v1/reports/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, reportStore.Count())

	rec = doJSON(t, mux, http.MethodDelete, "/v1/reports/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
