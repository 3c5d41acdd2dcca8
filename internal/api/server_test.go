package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreiFahren/nlp-service/internal/bot"
	"github.com/FreiFahren/nlp-service/internal/models"
	"github.com/FreiFahren/nlp-service/internal/risk"
)

type fakeNotifier struct {
	reports   []bot.WebReport
	limited   []bool
	sendError error
	suppress  bool
}

func (f *fakeNotifier) Notify(report bot.WebReport, limited bool) (bool, error) {
	if f.sendError != nil {
		return false, f.sendError
	}
	f.reports = append(f.reports, report)
	f.limited = append(f.limited, limited)
	return !f.suppress, nil
}

type fakeReports struct {
	reports []models.Report
	err     error
}

func (f *fakeReports) RecentReports(context.Context) ([]models.Report, error) {
	return f.reports, f.err
}

func newTestServer(notifier *fakeNotifier, reports *fakeReports) *Server {
	segments := []models.Segment{
		{Sid: "U8.A:B", LineID: "U8", FromStationID: "A", ToStationID: "B", Rank: 0},
		{Sid: "U8.B:C", LineID: "U8", FromStationID: "B", ToStationID: "C", Rank: 1},
	}
	engine := risk.NewEngine(segments, risk.DefaultParams())
	return NewServer(":0", notifier, reports, engine, "reportpw", "restartpw", func() {})
}

func postJSON(t *testing.T, handler http.Handler, path, password string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if password != "" {
		req.Header.Set("X-Password", password)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthcheck(t *testing.T) {
	server := newTestServer(&fakeNotifier{}, &fakeReports{})
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"success"}`, recorder.Body.String())
}

func TestReportInspectorForwards(t *testing.T) {
	notifier := &fakeNotifier{}
	server := newTestServer(notifier, &fakeReports{})

	recorder := postJSON(t, server.Handler(), "/report-inspector", "reportpw", map[string]string{
		"line":      "U8",
		"station":   "Hermannplatz",
		"direction": "Wittenau",
	})

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"success"}`, recorder.Body.String())
	require.Len(t, notifier.reports, 1)
	assert.Equal(t, "Hermannplatz", notifier.reports[0].Station)
	assert.True(t, notifier.limited[0], "group ingress is rate limited")
}

func TestReportInspectorRateLimited(t *testing.T) {
	notifier := &fakeNotifier{suppress: true}
	server := newTestServer(notifier, &fakeReports{})

	recorder := postJSON(t, server.Handler(), "/report-inspector", "reportpw", map[string]string{"station": "Zoo"})

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"success","message":"Rate limited"}`, recorder.Body.String())
}

func TestReportInspectorBadPassword(t *testing.T) {
	notifier := &fakeNotifier{}
	server := newTestServer(notifier, &fakeReports{})

	recorder := postJSON(t, server.Handler(), "/report-inspector", "wrong", map[string]string{"station": "Zoo"})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Empty(t, notifier.reports, "no side effect on auth failure")
}

func TestMiniAppReportSkipsRateLimit(t *testing.T) {
	notifier := &fakeNotifier{}
	server := newTestServer(notifier, &fakeReports{})

	recorder := postJSON(t, server.Handler(), "/mini-app/report", "reportpw", map[string]string{"station": "Zoo"})

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, notifier.limited, 1)
	assert.False(t, notifier.limited[0])
}

func TestReportForwardFailure(t *testing.T) {
	notifier := &fakeNotifier{sendError: errors.New("telegram down")}
	server := newTestServer(notifier, &fakeReports{})

	recorder := postJSON(t, server.Handler(), "/mini-app/report", "reportpw", map[string]string{"station": "Zoo"})

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
}

func TestMiniAppServesForm(t *testing.T) {
	server := newTestServer(&fakeNotifier{}, &fakeReports{})
	req := httptest.NewRequest(http.MethodGet, "/mini-app", nil)
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, recorder.Body.String(), "Kontrolle melden")
}

func TestRiskColors(t *testing.T) {
	reports := &fakeReports{reports: []models.Report{{
		StationID: "B",
		Timestamp: time.Now(),
		Lines:     []string{"U8"},
	}}}
	server := newTestServer(&fakeNotifier{}, reports)

	req := httptest.NewRequest(http.MethodGet, "/v0/risk-colors", nil)
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var response riskColorsResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.NotEmpty(t, response.LastModified)
	assert.Contains(t, response.SegmentColors, "U8.A:B")
	for _, color := range response.SegmentColors {
		assert.NotEqual(t, risk.ColorGreen, color, "green segments are dropped")
	}
}

func TestRiskColorsBackendDown(t *testing.T) {
	server := newTestServer(&fakeNotifier{}, &fakeReports{err: errors.New("no backend")})

	req := httptest.NewRequest(http.MethodGet, "/v0/risk-colors", nil)
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
}

func TestRestartRequiresPassword(t *testing.T) {
	restarted := make(chan struct{}, 1)
	server := newTestServer(&fakeNotifier{}, &fakeReports{})
	server.restart = func() { restarted <- struct{}{} }

	recorder := postJSON(t, server.Handler(), "/restart", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = postJSON(t, server.Handler(), "/restart", "restartpw", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	select {
	case <-restarted:
	case <-time.After(time.Second):
		t.Fatal("restart callback not invoked")
	}
}
