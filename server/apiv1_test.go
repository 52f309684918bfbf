package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayatoki/kiroku/analyzer"
	"github.com/ayatoki/kiroku/internal/profile"
	"github.com/ayatoki/kiroku/store"
	"github.com/ayatoki/kiroku/store/db/sqlite"
)

func newTestEngine() *analyzer.Engine {
	fixed := time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC)
	return analyzer.NewEngine(
		analyzer.WithClock(func() time.Time { return fixed }),
		analyzer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func testProfile() *profile.Profile {
	return &profile.Profile{
		Mode:          "demo",
		Timezone:      "Asia/Tokyo",
		HistoryWindow: 5,
	}
}

func newTestRouter(t *testing.T, historyStore *store.Store) *echo.Echo {
	t.Helper()

	e := echo.New()
	NewAPIV1Service(testProfile(), historyStore, newTestEngine()).Register(e)
	return e
}

func postAnalyze(t *testing.T, e *echo.Echo, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeAnalysis(t *testing.T, rec *httptest.ResponseRecorder) *analyzer.DetailedActivityAnalysis {
	t.Helper()

	result := &analyzer.DetailedActivityAnalysis{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), result))
	return result
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) *ErrorResponse {
	t.Helper()

	response := &ErrorResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), response))
	return response
}

func TestAnalyzeRouteExplicitRange(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := postAnalyze(t, e, `{
		"content": "7:38から8:20までリファクタリング",
		"timezone": "Asia/Tokyo",
		"timestamp": "2025-01-01T08:19:00+09:00"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeAnalysis(t, rec)
	assert.Equal(t, time.Date(2024, 12, 31, 22, 38, 0, 0, time.UTC), result.TimeAnalysis.StartTime)
	assert.Equal(t, time.Date(2024, 12, 31, 23, 20, 0, 0, time.UTC), result.TimeAnalysis.EndTime)
	assert.Equal(t, 42, result.TimeAnalysis.TotalMinutes)
	assert.Equal(t, analyzer.MethodExplicit, result.TimeAnalysis.Method)
	assert.Equal(t, "Asia/Tokyo", result.TimeAnalysis.Timezone)

	require.Len(t, result.Activities, 1)
	assert.Equal(t, "7:38から8:20までリファクタリング", result.Activities[0].Content)
	assert.Equal(t, "development", result.Activities[0].Category)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Warnings)
	assert.NotEmpty(t, result.UID)
}

func TestAnalyzeRouteAppliesProfileTimezone(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := postAnalyze(t, e, `{
		"content": "9:00から10:00まで会議",
		"timestamp": "2025-01-01T10:30:00+09:00"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeAnalysis(t, rec)
	assert.Equal(t, "Asia/Tokyo", result.TimeAnalysis.Timezone)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), result.TimeAnalysis.StartTime)
	assert.Equal(t, time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC), result.TimeAnalysis.EndTime)
	assert.Equal(t, 60, result.TimeAnalysis.TotalMinutes)
}

func TestAnalyzeRouteMalformedJSON(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := postAnalyze(t, e, `{oops`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	response := decodeErrorResponse(t, rec)
	assert.Equal(t, "INVALID_INPUT", response.Code)
	assert.Equal(t, "リクエストの形式が正しくありません。", response.Message)
}

func TestAnalyzeRouteInvalidTimezone(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := postAnalyze(t, e, `{"content": "テスト", "timezone": "Mars/Olympus"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	response := decodeErrorResponse(t, rec)
	assert.Equal(t, "TIMEZONE_CONVERSION_FAILED", response.Code)
	assert.Contains(t, response.Message, "Mars/Olympus")
}

func newHistoryStore(t *testing.T) *store.Store {
	t.Helper()

	driver, err := sqlite.NewDB(&profile.Profile{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	// Each pooled connection gets its own in-memory database, so the pool
	// must stay on a single connection.
	driver.GetDB().SetMaxOpenConns(1)

	_, err = driver.GetDB().Exec(`CREATE TABLE activity_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_ts BIGINT NOT NULL,
		content TEXT NOT NULL,
		started_ts BIGINT,
		ended_ts BIGINT
	)`)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = driver.Close()
	})
	return store.New(driver, testProfile())
}

func TestAnalyzeRouteUsesStoredHistory(t *testing.T) {
	historyStore := newHistoryStore(t)

	// 2024-12-31 22:50-23:50 UTC, overlapping the analyzed interval by 30 minutes.
	_, err := historyStore.GetDriver().GetDB().Exec(
		`INSERT INTO activity_logs (created_ts, content, started_ts, ended_ts) VALUES (?, ?, ?, ?)`,
		int64(1735689600), "コードレビュー", int64(1735685400), int64(1735689000),
	)
	require.NoError(t, err)

	e := newTestRouter(t, historyStore)
	rec := postAnalyze(t, e, `{
		"content": "7:38から8:20までリファクタリング",
		"timezone": "Asia/Tokyo",
		"timestamp": "2025-01-01T08:19:00+09:00"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeAnalysis(t, rec)
	require.Len(t, result.Warnings, 1)
	warning := result.Warnings[0]
	assert.Equal(t, analyzer.WarningTimeOverlap, warning.Type)
	assert.EqualValues(t, 30, warning.Details["overlap_minutes"])
	assert.True(t, result.IsValid)
}

func TestHealthzRoute(t *testing.T) {
	s, err := NewServer(testProfile(), nil, newTestEngine())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.echoServer.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Service ready.", rec.Body.String())
}

func TestNewServerRequiresEngine(t *testing.T) {
	s, err := NewServer(testProfile(), nil, nil)
	assert.Error(t, err)
	assert.Nil(t, s)
}
