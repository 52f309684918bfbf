package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/ayatoki/kiroku/internal/errors"
	"github.com/ayatoki/kiroku/internal/timezone"
)

// mockClassifier records every request and replays a canned response.
type mockClassifier struct {
	Response *ClassifierResponse
	Err      error
	Calls    []*ClassifierRequest
}

func (m *mockClassifier) ClassifyTime(_ context.Context, req *ClassifierRequest) (*ClassifierResponse, error) {
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func newTestEngine(opts ...Option) *Engine {
	base := []Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	return NewEngine(append(base, opts...)...)
}

func TestAnalyzeExplicitColonRange(t *testing.T) {
	jst := timezone.LocationAsiaTokyo
	inputTS := time.Date(2025, 1, 1, 8, 19, 0, 0, jst)
	mock := &mockClassifier{}
	engine := newTestEngine(WithClassifier(mock), WithClock(fixedClock(inputTS)))

	result, err := engine.Analyze(context.Background(), &AnalyzeRequest{
		Input:          "[08:19] 7:38から8:20までリファクタリング",
		Timezone:       timezone.TimezoneAsiaTokyo,
		InputTimestamp: inputTS,
	})

	require.NoError(t, err)
	assert.Empty(t, mock.Calls, "a strong explicit match never escalates")

	ta := result.TimeAnalysis
	assert.Equal(t, time.Date(2024, 12, 31, 22, 38, 0, 0, time.UTC), ta.StartTime)
	assert.Equal(t, time.Date(2024, 12, 31, 23, 20, 0, 0, time.UTC), ta.EndTime)
	assert.Equal(t, 42, ta.TotalMinutes)
	assert.Equal(t, MethodExplicit, ta.Method)
	assert.Greater(t, ta.Confidence, 0.9)
	assert.Equal(t, "Asia/Tokyo", ta.Timezone)
	require.Len(t, ta.ExtractedComponents, 2)
	assert.Equal(t, ComponentStartTime, ta.ExtractedComponents[0].Type)
	assert.Equal(t, "07:38", ta.ExtractedComponents[0].Normalized)
	assert.Equal(t, ComponentEndTime, ta.ExtractedComponents[1].Type)
	assert.Equal(t, "08:20", ta.ExtractedComponents[1].Normalized)

	require.Len(t, result.Activities, 1)
	activity := result.Activities[0]
	assert.Equal(t, "7:38から8:20までリファクタリング", activity.Content)
	assert.Equal(t, "development", activity.Category)
	assert.Equal(t, "リファクタリング", activity.SubCategory)
	assert.Equal(t, 100.0, activity.TimePercentage)
	assert.Equal(t, 42, activity.ActualMinutes)
	assert.Equal(t, PriorityPrimary, activity.Priority)
	assert.InDelta(t, 0.9, activity.Confidence, 1e-9)

	assert.Empty(t, result.Warnings)
	assert.True(t, result.IsValid)
	assert.Greater(t, result.OverallConfidence, 0.9)
	assert.Empty(t, result.Recommendations)
	assert.NotEmpty(t, result.UID)
	assert.Contains(t, result.Summary, "2025-01-01 07:38から08:20までの42分間")

	meta := result.Metadata
	assert.True(t, meta.InputCharacteristics.HasExplicitTime)
	assert.False(t, meta.InputCharacteristics.HasMultipleActivities)
	assert.Equal(t, ComplexitySimple, meta.InputCharacteristics.Complexity)
	assert.Equal(t, int64(0), meta.ProcessingTimeMs, "fixed clock yields zero elapsed time")
	assert.InDelta(t, ta.Confidence, meta.QualityMetrics.TimeConfidence, 1e-9)
	assert.Equal(t, 0, meta.QualityMetrics.WarningCount)
}

func TestAnalyzeRelativeExpression(t *testing.T) {
	jst := timezone.LocationAsiaTokyo
	inputTS := time.Date(2025, 1, 1, 10, 0, 0, 0, jst)
	mock := &mockClassifier{}
	engine := newTestEngine(WithClassifier(mock), WithClock(fixedClock(inputTS)))

	result, err := engine.Analyze(context.Background(), &AnalyzeRequest{
		Input:          "さっき1時間ほどプログラミング",
		Timezone:       timezone.TimezoneAsiaTokyo,
		InputTimestamp: inputTS,
	})

	require.NoError(t, err)
	assert.Empty(t, mock.Calls)

	ta := result.TimeAnalysis
	assert.Equal(t, inputTS.UTC(), ta.EndTime, "relative expressions end at the capture instant")
	assert.Equal(t, inputTS.Add(-time.Hour).UTC(), ta.StartTime)
	assert.Equal(t, 60, ta.TotalMinutes)
	assert.Equal(t, MethodRelative, ta.Method)

	require.Len(t, result.Activities, 1)
	assert.Equal(t, "development", result.Activities[0].Category)
	assert.Equal(t, "プログラミング", result.Activities[0].SubCategory)

	assert.Empty(t, result.Warnings)
	assert.True(t, result.IsValid)
	assert.InDelta(t, 0.85, result.OverallConfidence, 1e-9)
	assert.False(t, result.Metadata.InputCharacteristics.HasExplicitTime)
}

func TestAnalyzeParallelActivities(t *testing.T) {
	jst := timezone.LocationAsiaTokyo
	inputTS := time.Date(2025, 1, 1, 10, 30, 0, 0, jst)
	engine := newTestEngine(WithClock(fixedClock(inputTS)))

	result, err := engine.Analyze(context.Background(), &AnalyzeRequest{
		Input:          "9:00から10:00まで会議しながらメモ整理",
		Timezone:       timezone.TimezoneAsiaTokyo,
		InputTimestamp: inputTS,
	})

	require.NoError(t, err)
	assert.Equal(t, 60, result.TimeAnalysis.TotalMinutes)

	require.Len(t, result.Activities, 2)
	primary, secondary := result.Activities[0], result.Activities[1]
	assert.Equal(t, "meeting", primary.Category)
	assert.Equal(t, 70.0, primary.TimePercentage)
	assert.Equal(t, 42, primary.ActualMinutes)
	assert.Equal(t, "メモ整理", secondary.Content)
	assert.Equal(t, 30.0, secondary.TimePercentage)
	assert.Equal(t, 18, secondary.ActualMinutes)

	assert.Empty(t, result.Warnings)
	assert.True(t, result.Metadata.InputCharacteristics.HasMultipleActivities)
	assert.Equal(t, ComplexityMedium, result.Metadata.InputCharacteristics.Complexity)
}

func TestAnalyzeFlagsDuplicateHistory(t *testing.T) {
	jst := timezone.LocationAsiaTokyo
	inputTS := time.Date(2025, 1, 1, 8, 19, 0, 0, jst)
	start := time.Date(2025, 1, 1, 7, 38, 0, 0, jst).UTC()
	end := time.Date(2025, 1, 1, 8, 20, 0, 0, jst).UTC()
	engine := newTestEngine(WithClock(fixedClock(inputTS)))

	result, err := engine.Analyze(context.Background(), &AnalyzeRequest{
		Input:          "7:38から8:20までリファクタリング",
		Timezone:       timezone.TimezoneAsiaTokyo,
		InputTimestamp: inputTS,
		Context: RecentActivityContext{RecentLogs: []RecentLogEntry{
			{StartTime: &start, EndTime: &end, Content: "リファクタリング"},
		}},
	})

	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningDuplicateTimeEntry, result.Warnings[0].Type)
	assert.Equal(t, LevelError, result.Warnings[0].Level)
	assert.False(t, result.IsValid)
	assert.InDelta(t, 0.75, result.OverallConfidence, 1e-9)
	require.Len(t, result.Recommendations, 1)
	assert.Contains(t, result.Summary, "確認が必要")
}

func TestAnalyzeFlagsPartialOverlap(t *testing.T) {
	jst := timezone.LocationAsiaTokyo
	inputTS := time.Date(2025, 1, 1, 8, 19, 0, 0, jst)
	start := time.Date(2025, 1, 1, 7, 50, 0, 0, jst).UTC()
	end := time.Date(2025, 1, 1, 8, 50, 0, 0, jst).UTC()
	engine := newTestEngine(WithClock(fixedClock(inputTS)))

	result, err := engine.Analyze(context.Background(), &AnalyzeRequest{
		Input:          "7:38から8:20までリファクタリング",
		Timezone:       timezone.TimezoneAsiaTokyo,
		InputTimestamp: inputTS,
		Context: RecentActivityContext{RecentLogs: []RecentLogEntry{
			{StartTime: &start, EndTime: &end, Content: "コードレビュー"},
		}},
	})

	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningTimeOverlap, result.Warnings[0].Type)
	assert.Equal(t, 30, result.Warnings[0].Details["overlap_minutes"])
	assert.True(t, result.IsValid, "partial overlap warns without invalidating")
	assert.InDelta(t, 0.85, result.OverallConfidence, 1e-9)
}

func TestAnalyzeEmptyInputOffline(t *testing.T) {
	jst := timezone.LocationAsiaTokyo
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, jst)
	engine := newTestEngine(WithClock(fixedClock(fixed)))

	result, err := engine.Analyze(context.Background(), &AnalyzeRequest{Timezone: timezone.TimezoneAsiaTokyo})

	require.NoError(t, err, "empty input still yields a best-effort result")

	ta := result.TimeAnalysis
	assert.Equal(t, fixed.UTC(), ta.EndTime, "zero input timestamp falls back to the clock")
	assert.Equal(t, fixed.Add(-30*time.Minute).UTC(), ta.StartTime)
	assert.Equal(t, 30, ta.TotalMinutes)
	assert.Equal(t, MethodInferred, ta.Method)
	assert.InDelta(t, 0.3, ta.Confidence, 1e-9)
	assert.Empty(t, ta.ExtractedComponents)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningLowConfidence, result.Warnings[0].Type)
	assert.Equal(t, LevelInfo, result.Warnings[0].Level)
	assert.True(t, result.IsValid)
	assert.InDelta(t, 0.45, result.OverallConfidence, 1e-9)
	assert.Contains(t, result.Summary, "推定値")
	assert.Contains(t, result.Summary, "（内容未記載）")
	assert.Equal(t, 0, result.Metadata.InputCharacteristics.Length)
}

func TestAnalyzeClassifierErrorFallsBack(t *testing.T) {
	jst := timezone.LocationAsiaTokyo
	inputTS := time.Date(2025, 1, 1, 15, 0, 0, 0, jst)
	mock := &mockClassifier{Err: errors.New("service unavailable")}
	engine := newTestEngine(WithClassifier(mock), WithClock(fixedClock(inputTS)))

	result, err := engine.Analyze(context.Background(), &AnalyzeRequest{
		Input:          "資料整理をした",
		Timezone:       timezone.TimezoneAsiaTokyo,
		InputTimestamp: inputTS,
	})

	require.NoError(t, err, "classifier failures are absorbed")
	require.Len(t, mock.Calls, 1)
	assert.Empty(t, mock.Calls[0].HintStart, "no basic interval means no hint")

	ta := result.TimeAnalysis
	assert.Equal(t, inputTS.UTC(), ta.EndTime)
	assert.Equal(t, inputTS.Add(-30*time.Minute).UTC(), ta.StartTime)
	assert.Equal(t, MethodInferred, ta.Method)
	assert.InDelta(t, 0.3, ta.Confidence, 1e-9)
}

func TestAnalyzeMalformedClassifierResponseFallsBack(t *testing.T) {
	jst := timezone.LocationAsiaTokyo
	inputTS := time.Date(2025, 1, 1, 15, 0, 0, 0, jst)
	mock := &mockClassifier{Response: &ClassifierResponse{
		StartTime:  "not a timestamp",
		EndTime:    "2025-01-01T05:00:00Z",
		Confidence: 0.9,
		Method:     "EXPLICIT",
	}}
	engine := newTestEngine(WithClassifier(mock), WithClock(fixedClock(inputTS)))

	result, err := engine.Analyze(context.Background(), &AnalyzeRequest{
		Input:          "資料整理をした",
		Timezone:       timezone.TimezoneAsiaTokyo,
		InputTimestamp: inputTS,
	})

	require.NoError(t, err)
	require.Len(t, mock.Calls, 1)
	assert.Equal(t, MethodInferred, result.TimeAnalysis.Method)
	assert.InDelta(t, 0.3, result.TimeAnalysis.Confidence, 1e-9)
	assert.Equal(t, inputTS.UTC(), result.TimeAnalysis.EndTime)
}

func TestAnalyzeDampensUncorroboratedClassifier(t *testing.T) {
	jst := timezone.LocationAsiaTokyo
	inputTS := time.Date(2025, 1, 1, 15, 0, 0, 0, jst)
	mock := &mockClassifier{Response: &ClassifierResponse{
		StartTime:  "2025-01-01T04:00:00Z",
		EndTime:    "2025-01-01T05:00:00Z",
		Confidence: 0.95,
		Method:     "EXPLICIT",
	}}
	engine := newTestEngine(WithClassifier(mock), WithClock(fixedClock(inputTS)))

	result, err := engine.Analyze(context.Background(), &AnalyzeRequest{
		Input:          "資料整理をした",
		Timezone:       timezone.TimezoneAsiaTokyo,
		InputTimestamp: inputTS,
	})

	require.NoError(t, err)
	require.Len(t, mock.Calls, 1)

	ta := result.TimeAnalysis
	assert.Equal(t, time.Date(2025, 1, 1, 4, 0, 0, 0, time.UTC), ta.StartTime)
	assert.Equal(t, time.Date(2025, 1, 1, 5, 0, 0, 0, time.UTC), ta.EndTime)
	assert.InDelta(t, dampenedConfidenceCap, ta.Confidence, 1e-9, "no textual corroboration caps confidence")
	assert.Equal(t, MethodInferred, ta.Method)
}

func TestAnalyzeKeepsCorroboratedClassifier(t *testing.T) {
	jst := timezone.LocationAsiaTokyo
	inputTS := time.Date(2025, 1, 1, 15, 0, 0, 0, jst)
	mock := &mockClassifier{Response: &ClassifierResponse{
		StartTime:  "2025-01-01T05:00:00Z",
		EndTime:    "2025-01-01T06:00:00Z",
		Confidence: 0.85,
		Method:     "CONTEXTUAL",
	}}
	engine := newTestEngine(WithClassifier(mock), WithClock(fixedClock(inputTS)))

	result, err := engine.Analyze(context.Background(), &AnalyzeRequest{
		Input:          "先ほど資料整理",
		Timezone:       timezone.TimezoneAsiaTokyo,
		InputTimestamp: inputTS,
	})

	require.NoError(t, err)
	require.Len(t, mock.Calls, 1, "vague expressions escalate")

	sent := mock.Calls[0]
	assert.Equal(t, "2025-01-01 15:00", sent.CurrentTimeDisplay)
	assert.Equal(t, "Asia/Tokyo", sent.Timezone)
	assert.Equal(t, "先ほど資料整理", sent.RawInput)
	assert.Equal(t, "2025-01-01T05:30:00Z", sent.HintStart, "vague match still hints its tentative interval")
	assert.Equal(t, "2025-01-01T06:00:00Z", sent.HintEnd)

	ta := result.TimeAnalysis
	assert.Equal(t, MethodContextual, ta.Method, "corroborated classifier output is kept verbatim")
	assert.InDelta(t, 0.85, ta.Confidence, 1e-9)
	assert.Equal(t, time.Date(2025, 1, 1, 5, 0, 0, 0, time.UTC), ta.StartTime)
}

func TestAnalyzeInvalidTimezone(t *testing.T) {
	engine := newTestEngine()

	result, err := engine.Analyze(context.Background(), &AnalyzeRequest{
		Input:    "散歩",
		Timezone: "Mars/Olympus",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, kerrors.IsCode(err, kerrors.ErrCodeTimezoneConversionFailed))
}

func TestAnalyzeNilRequest(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	engine := newTestEngine(WithClock(fixedClock(fixed)))

	result, err := engine.Analyze(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, "UTC", result.TimeAnalysis.Timezone)
	assert.Equal(t, MethodInferred, result.TimeAnalysis.Method)
	assert.Equal(t, fixed, result.TimeAnalysis.EndTime)
}
