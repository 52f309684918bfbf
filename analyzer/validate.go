package analyzer

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/ayatoki/kiroku/internal/timezone"
)

// ValidationVerdict is the consistency validator's combined output.
type ValidationVerdict struct {
	Warnings          []AnalysisWarning
	OverallConfidence float64
	IsValid           bool
	Recommendations   []string
}

const (
	maxPlausibleMinutes       = 480
	lowTimeConfidence         = 0.5
	lowActivityConfidence     = 0.4
	percentSumTolerance       = 1.0
	minutesSumTolerance       = 2
	endpointDriftTolerance    = 5 * time.Minute
	contentCoverageThreshold  = 0.5
	conflictShareThreshold    = 20.0
	unrealisticShareThreshold = 50.0

	penaltyPerError      = 0.2
	penaltyPerWarning    = 0.1
	minOverallConfidence = 0.1
)

// incompatibleCategoryPairs lists category combinations that cannot
// realistically run in parallel when both take a meaningful share.
var incompatibleCategoryPairs = [][2]string{
	{"meeting", "development"},
	{"commute", "meeting"},
	{"meal", "meeting"},
}

// validateAnalysis runs every rule group over the assembled analysis. Rule
// groups are independent pure functions and all of them are evaluated; no
// finding suppresses another. INFO findings carry no confidence penalty.
func validateAnalysis(ta TimeAnalysisResult, activities []ActivityDetail, signals []OverlapSignal, rawInput string) ValidationVerdict {
	warnings := make([]AnalysisWarning, 0, 4)
	warnings = append(warnings, checkTimeSanity(ta)...)
	warnings = append(warnings, checkActivityConsistency(ta, activities)...)
	warnings = append(warnings, checkHistoryConsistency(signals)...)
	warnings = append(warnings, checkInputAgreement(ta, activities, rawInput)...)
	warnings = append(warnings, checkParallelPlausibility(activities)...)

	errorCount, warningCount := 0, 0
	for _, w := range warnings {
		switch w.Level {
		case LevelError:
			errorCount++
		case LevelWarning:
			warningCount++
		}
	}

	overall := (ta.Confidence + meanActivityConfidence(activities)) / 2
	overall -= float64(errorCount)*penaltyPerError + float64(warningCount)*penaltyPerWarning
	overall = clampRange(overall, minOverallConfidence, 1.0)

	return ValidationVerdict{
		Warnings:          warnings,
		OverallConfidence: overall,
		IsValid:           errorCount == 0,
		Recommendations:   recommendationsFor(warnings),
	}
}

func checkTimeSanity(ta TimeAnalysisResult) []AnalysisWarning {
	var warnings []AnalysisWarning
	if !ta.StartTime.Before(ta.EndTime) {
		warnings = append(warnings, AnalysisWarning{
			Type:    WarningTimeInconsistency,
			Level:   LevelError,
			Message: "開始時刻が終了時刻以降になっています",
			Details: map[string]any{"start_time": ta.StartTime.Format(time.RFC3339), "end_time": ta.EndTime.Format(time.RFC3339)},
		})
	}
	computed := minutesBetween(ta.StartTime, ta.EndTime)
	if absInt(computed-ta.TotalMinutes) > 1 {
		warnings = append(warnings, AnalysisWarning{
			Type:    WarningTimeCalculationError,
			Level:   LevelWarning,
			Message: "時間の計算結果が区間の長さと一致しません",
			Details: map[string]any{"computed_minutes": computed, "total_minutes": ta.TotalMinutes},
		})
	}
	if ta.TotalMinutes > maxPlausibleMinutes || ta.TotalMinutes < 1 {
		warnings = append(warnings, AnalysisWarning{
			Type:    WarningDurationSuspicious,
			Level:   LevelWarning,
			Message: fmt.Sprintf("活動時間が%d分と不自然です", ta.TotalMinutes),
			Details: map[string]any{"total_minutes": ta.TotalMinutes},
		})
	}
	if ta.Confidence < lowTimeConfidence {
		warnings = append(warnings, AnalysisWarning{
			Type:    WarningLowConfidence,
			Level:   LevelInfo,
			Message: "時間抽出の確信度が低めです",
			Details: map[string]any{"confidence": ta.Confidence},
		})
	}
	return warnings
}

func checkActivityConsistency(ta TimeAnalysisResult, activities []ActivityDetail) []AnalysisWarning {
	var warnings []AnalysisWarning
	if len(activities) == 0 {
		return warnings
	}

	pctSum := 0.0
	minutesSum := 0
	for _, a := range activities {
		pctSum += a.TimePercentage
		minutesSum += a.ActualMinutes
	}
	if math.Abs(pctSum-100) > percentSumTolerance {
		warnings = append(warnings, AnalysisWarning{
			Type:    WarningTimeDistributionError,
			Level:   LevelError,
			Message: "活動の時間配分の合計が100%になっていません",
			Details: map[string]any{"percentage_sum": pctSum},
		})
	}
	if absInt(minutesSum-ta.TotalMinutes) > minutesSumTolerance {
		warnings = append(warnings, AnalysisWarning{
			Type:    WarningTimeDistributionError,
			Level:   LevelWarning,
			Message: "活動時間の合計が全体の時間と一致しません",
			Details: map[string]any{"minutes_sum": minutesSum, "total_minutes": ta.TotalMinutes},
		})
	}

	for _, a := range activities {
		if a.ActualMinutes < 1 && a.TimePercentage > 5 {
			warnings = append(warnings, AnalysisWarning{
				Type:    WarningActivityDurationSuspicious,
				Level:   LevelWarning,
				Message: fmt.Sprintf("「%s」の時間が1分未満になっています", a.Content),
				Details: map[string]any{"content": a.Content, "actual_minutes": a.ActualMinutes, "percentage": a.TimePercentage},
			})
		}
		if a.Confidence < lowActivityConfidence {
			warnings = append(warnings, AnalysisWarning{
				Type:    WarningLowConfidence,
				Level:   LevelInfo,
				Message: fmt.Sprintf("「%s」の分類の確信度が低めです", a.Content),
				Details: map[string]any{"content": a.Content, "confidence": a.Confidence},
			})
		}
	}
	return warnings
}

func checkHistoryConsistency(signals []OverlapSignal) []AnalysisWarning {
	var warnings []AnalysisWarning
	for _, s := range signals {
		if s.ExactDuplicate {
			warnings = append(warnings, AnalysisWarning{
				Type:    WarningDuplicateTimeEntry,
				Level:   LevelError,
				Message: "同じ時間帯の記録がすでに存在します",
				Details: map[string]any{"content": s.Entry.Content},
			})
			continue
		}
		warnings = append(warnings, AnalysisWarning{
			Type:    WarningTimeOverlap,
			Level:   LevelWarning,
			Message: fmt.Sprintf("既存の記録と%d分重なっています", s.OverlapMinutes),
			Details: map[string]any{"overlap_minutes": s.OverlapMinutes, "content": s.Entry.Content},
		})
	}
	return warnings
}

func checkInputAgreement(ta TimeAnalysisResult, activities []ActivityDetail, rawInput string) []AnalysisWarning {
	var warnings []AnalysisWarning

	if ta.Method == MethodExplicit {
		if w, ok := impliedIntervalDrift(ta, rawInput); ok {
			warnings = append(warnings, w)
		}
	}

	rawLen := utf8.RuneCountInString(rawInput)
	if rawLen > 0 && len(activities) > 0 {
		covered := 0
		for _, a := range activities {
			covered += utf8.RuneCountInString(a.Content)
		}
		if float64(covered) < contentCoverageThreshold*float64(rawLen) {
			warnings = append(warnings, AnalysisWarning{
				Type:    WarningContentAnalysisIncomplete,
				Level:   LevelInfo,
				Message: "入力の一部しか活動として解析されていません",
				Details: map[string]any{"covered_runes": covered, "input_runes": rawLen},
			})
		}
	}
	return warnings
}

// impliedIntervalDrift re-derives the interval straight from the first
// H:MM-H:MM expression in the raw input and reports endpoint drift beyond
// the tolerance. The re-derivation anchors on the resolved start's date so
// both sides pick the same day.
func impliedIntervalDrift(ta TimeAnalysisResult, rawInput string) (AnalysisWarning, bool) {
	loc, err := timezone.Parse(ta.Timezone)
	if err != nil {
		return AnalysisWarning{}, false
	}
	m := colonRangePattern.FindStringSubmatch(Normalize(rawInput))
	if m == nil {
		return AnalysisWarning{}, false
	}
	sh, ok1 := parseDigits(m[1])
	sm, ok2 := parseDigits(m[2])
	eh, ok3 := parseDigits(m[3])
	em, ok4 := parseDigits(m[4])
	if !ok1 || !ok2 || !ok3 || !ok4 || !clockValid(sh, sm) || !clockValid(eh, em) {
		return AnalysisWarning{}, false
	}

	cand := Candidate{Kind: KindClockRange, Range: &ClockRange{StartHour: sh, StartMin: sm, EndHour: eh, EndMin: em}}
	implied := resolveCandidate(cand, ta.StartTime, loc)
	if implied.Start == nil || implied.End == nil {
		return AnalysisWarning{}, false
	}

	startDrift := absDuration(implied.Start.Sub(ta.StartTime))
	endDrift := absDuration(implied.End.Sub(ta.EndTime))
	if startDrift <= endpointDriftTolerance && endDrift <= endpointDriftTolerance {
		return AnalysisWarning{}, false
	}
	return AnalysisWarning{
		Type:    WarningInputAnalysisMismatch,
		Level:   LevelWarning,
		Message: "入力に書かれた時刻と解析結果がずれています",
		Details: map[string]any{
			"expected_start": implied.Start.Format(time.RFC3339),
			"actual_start":   ta.StartTime.Format(time.RFC3339),
			"expected_end":   implied.End.Format(time.RFC3339),
			"actual_end":     ta.EndTime.Format(time.RFC3339),
		},
	}, true
}

func checkParallelPlausibility(activities []ActivityDetail) []AnalysisWarning {
	var warnings []AnalysisWarning

	maxShare := make(map[string]float64, len(activities))
	for _, a := range activities {
		if a.TimePercentage > maxShare[a.Category] {
			maxShare[a.Category] = a.TimePercentage
		}
	}
	for _, pair := range incompatibleCategoryPairs {
		if maxShare[pair[0]] > conflictShareThreshold && maxShare[pair[1]] > conflictShareThreshold {
			warnings = append(warnings, AnalysisWarning{
				Type:    WarningParallelActivityConflict,
				Level:   LevelWarning,
				Message: fmt.Sprintf("「%s」と「%s」の並行作業は現実的でない可能性があります", pair[0], pair[1]),
				Details: map[string]any{"categories": []string{pair[0], pair[1]}},
			})
		}
	}

	dominant := 0
	for _, a := range activities {
		if a.TimePercentage > unrealisticShareThreshold {
			dominant++
		}
	}
	if dominant > 2 {
		warnings = append(warnings, AnalysisWarning{
			Type:    WarningTimeDistributionUnrealistic,
			Level:   LevelWarning,
			Message: "半分を超える割合の活動が3つ以上あります",
			Details: map[string]any{"dominant_activities": dominant},
		})
	}
	return warnings
}

// recommendationTemplates maps each warning type to user guidance. Keyed by
// type, not instance: a type firing multiple times yields one suggestion.
var recommendationTemplates = map[WarningType]string{
	WarningTimeInconsistency:           "開始時刻と終了時刻を確認して記録し直してください",
	WarningTimeCalculationError:        "「7:38から8:20まで」のように時刻を明示すると精度が上がります",
	WarningDurationSuspicious:          "長時間の活動は複数の記録に分けることを検討してください",
	WarningLowConfidence:               "「10:00から11:00まで」のように具体的な時刻を書くと確実に解析できます",
	WarningTimeDistributionError:       "各活動の割合を「コーディング70%」のように明示してください",
	WarningActivityDurationSuspicious:  "ごく短い活動は別の記録として残すことを検討してください",
	WarningDuplicateTimeEntry:          "同じ時間帯の既存記録を確認し、重複であれば片方を削除してください",
	WarningTimeOverlap:                 "並行して行った活動は「AしながらB」の形で1つの記録にまとめられます",
	WarningInputAnalysisMismatch:       "解析された時刻が入力と異なります。時刻の表記を確認してください",
	WarningContentAnalysisIncomplete:   "活動内容をもう少し具体的に書くと解析の精度が上がります",
	WarningParallelActivityConflict:    "同時に行えない活動の組み合わせです。時間帯を分けて記録してください",
	WarningTimeDistributionUnrealistic: "時間配分の合計が現実的ではありません。割合を見直してください",
}

func recommendationsFor(warnings []AnalysisWarning) []string {
	recs := make([]string, 0, 2)
	seen := make(map[WarningType]struct{}, len(warnings))
	for _, w := range warnings {
		if _, ok := seen[w.Type]; ok {
			continue
		}
		seen[w.Type] = struct{}{}
		if rec, ok := recommendationTemplates[w.Type]; ok {
			recs = append(recs, rec)
		}
	}
	return recs
}

func meanActivityConfidence(activities []ActivityDetail) float64 {
	if len(activities) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range activities {
		sum += a.Confidence
	}
	return sum / float64(len(activities))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
