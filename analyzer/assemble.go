package analyzer

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/lithammer/shortuuid/v4"

	"github.com/ayatoki/kiroku/internal/timezone"
)

// assembleAnalysis merges the pipeline stages into the final record. This
// step is a pure merge; no network or storage I/O happens here.
func assembleAnalysis(rawInput string, ta TimeAnalysisResult, activities []ActivityDetail, verdict ValidationVerdict, complexity ComplexityBucket, processingMs int64) *DetailedActivityAnalysis {
	return &DetailedActivityAnalysis{
		UID:               shortuuid.New(),
		TimeAnalysis:      ta,
		Activities:        activities,
		Warnings:          verdict.Warnings,
		OverallConfidence: verdict.OverallConfidence,
		IsValid:           verdict.IsValid,
		Summary:           buildSummary(ta, activities, verdict),
		Recommendations:   verdict.Recommendations,
		Metadata: AnalysisMetadata{
			ProcessingTimeMs: processingMs,
			InputCharacteristics: InputCharacteristics{
				Length:                utf8.RuneCountInString(rawInput),
				HasExplicitTime:       hasExplicitTime(ta.ExtractedComponents),
				HasMultipleActivities: len(activities) > 1,
				Complexity:            complexity,
			},
			QualityMetrics: QualityMetrics{
				TimeConfidence:     ta.Confidence,
				ActivityConfidence: meanActivityConfidence(activities),
				ValidationScore:    verdict.OverallConfidence,
				WarningCount:       len(verdict.Warnings),
			},
		},
	}
}

func hasExplicitTime(components []ParsedTimeComponent) bool {
	for _, c := range components {
		if c.Type == ComponentStartTime || c.Type == ComponentEndTime {
			return true
		}
	}
	return false
}

// buildSummary renders a one-paragraph Japanese summary: the resolved
// interval in the user's timezone, its length, and the dominant activity.
func buildSummary(ta TimeAnalysisResult, activities []ActivityDetail, verdict ValidationVerdict) string {
	loc, err := timezone.Parse(ta.Timezone)
	if err != nil {
		loc = time.UTC
	}
	start := ta.StartTime.In(loc)
	end := ta.EndTime.In(loc)

	endLayout := "15:04"
	if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
		endLayout = "01-02 15:04"
	}

	content := topActivity(activities).Content
	if content == "" {
		content = "（内容未記載）"
	}

	summary := fmt.Sprintf("%sから%sまでの%d分間の活動として解析しました。主な活動は「%s」です。",
		start.Format("2006-01-02 15:04"), end.Format(endLayout), ta.TotalMinutes, content)
	if ta.Method == MethodInferred {
		summary += "時間帯は入力から特定できなかったため推定値です。"
	}
	if hasReviewableWarnings(verdict.Warnings) {
		summary += "記録内容に確認が必要な点があります。"
	}
	return summary
}

func topActivity(activities []ActivityDetail) ActivityDetail {
	var top ActivityDetail
	for i, a := range activities {
		if i == 0 || a.TimePercentage > top.TimePercentage {
			top = a
		}
	}
	return top
}

func hasReviewableWarnings(warnings []AnalysisWarning) bool {
	for _, w := range warnings {
		if w.Level == LevelWarning || w.Level == LevelError {
			return true
		}
	}
	return false
}
