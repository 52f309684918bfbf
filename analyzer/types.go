package analyzer

import (
	"time"
)

// ExtractionMethod tags the provenance of a resolved interval.
type ExtractionMethod string

const (
	// MethodExplicit means the interval was directly stated in the input.
	MethodExplicit ExtractionMethod = "EXPLICIT"
	// MethodRelative means the interval was computed from an offset or duration.
	MethodRelative ExtractionMethod = "RELATIVE"
	// MethodInferred means no usable signal existed and the interval is a guess.
	MethodInferred ExtractionMethod = "INFERRED"
	// MethodContextual means the interval was adjusted from recent history.
	MethodContextual ExtractionMethod = "CONTEXTUAL"
)

// ComponentType classifies one extracted time expression.
type ComponentType string

const (
	ComponentStartTime    ComponentType = "START_TIME"
	ComponentEndTime      ComponentType = "END_TIME"
	ComponentDuration     ComponentType = "DURATION"
	ComponentRelativeTime ComponentType = "RELATIVE_TIME"
	ComponentTimePeriod   ComponentType = "TIME_PERIOD"
)

// ParsedTimeComponent is one time expression found in the normalized input.
// Spans are rune offsets into the normalized text.
type ParsedTimeComponent struct {
	Type       ComponentType `json:"type"`
	Raw        string        `json:"raw"`
	Normalized string        `json:"normalized"`
	Confidence float64       `json:"confidence"`
	SpanStart  int           `json:"span_start"`
	SpanEnd    int           `json:"span_end"`
}

// TimeAnalysisResult is the resolved UTC interval for one activity note.
// StartTime is always strictly before EndTime.
type TimeAnalysisResult struct {
	StartTime           time.Time             `json:"start_time"`
	EndTime             time.Time             `json:"end_time"`
	TotalMinutes        int                   `json:"total_minutes"`
	Confidence          float64               `json:"confidence"`
	Method              ExtractionMethod      `json:"method"`
	Timezone            string                `json:"timezone"`
	ExtractedComponents []ParsedTimeComponent `json:"extracted_components"`
}

// ActivityPriority ranks an activity by its share of the interval.
type ActivityPriority string

const (
	// PriorityPrimary marks activities taking 80% or more of the interval.
	PriorityPrimary ActivityPriority = "PRIMARY"
	// PrioritySecondary marks activities taking 20-80% of the interval.
	PrioritySecondary ActivityPriority = "SECONDARY"
	// PriorityBackground marks activities taking less than 20% of the interval.
	PriorityBackground ActivityPriority = "BACKGROUND"
)

// ActivityDetail is one decomposed activity with its time allocation.
type ActivityDetail struct {
	Content        string           `json:"content"`
	Category       string           `json:"category"`
	SubCategory    string           `json:"sub_category,omitempty"`
	TimePercentage float64          `json:"time_percentage"`
	ActualMinutes  int              `json:"actual_minutes"`
	Priority       ActivityPriority `json:"priority"`
	Confidence     float64          `json:"confidence"`
}

// WarningType is the closed taxonomy of consistency findings. Downstream
// consumers key UI behavior off Type and Level, so the set must stay stable.
type WarningType string

const (
	WarningTimeInconsistency           WarningType = "TIME_INCONSISTENCY"
	WarningTimeCalculationError        WarningType = "TIME_CALCULATION_ERROR"
	WarningDurationSuspicious          WarningType = "DURATION_SUSPICIOUS"
	WarningLowConfidence               WarningType = "LOW_CONFIDENCE"
	WarningTimeDistributionError       WarningType = "TIME_DISTRIBUTION_ERROR"
	WarningActivityDurationSuspicious  WarningType = "ACTIVITY_DURATION_SUSPICIOUS"
	WarningDuplicateTimeEntry          WarningType = "DUPLICATE_TIME_ENTRY"
	WarningTimeOverlap                 WarningType = "TIME_OVERLAP"
	WarningInputAnalysisMismatch       WarningType = "INPUT_ANALYSIS_MISMATCH"
	WarningContentAnalysisIncomplete   WarningType = "CONTENT_ANALYSIS_INCOMPLETE"
	WarningParallelActivityConflict    WarningType = "PARALLEL_ACTIVITY_CONFLICT"
	WarningTimeDistributionUnrealistic WarningType = "TIME_DISTRIBUTION_UNREALISTIC"
)

// WarningLevel is the severity tier of a warning.
type WarningLevel string

const (
	// LevelInfo is a non-blocking note.
	LevelInfo WarningLevel = "INFO"
	// LevelWarning should be reviewed by the user.
	LevelWarning WarningLevel = "WARNING"
	// LevelError marks the analysis invalid.
	LevelError WarningLevel = "ERROR"
)

// AnalysisWarning is one consistency finding from the validator.
type AnalysisWarning struct {
	Type    WarningType    `json:"type"`
	Level   WarningLevel   `json:"level"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// RecentLogEntry is one prior activity log supplied by the history provider.
// Entries missing either endpoint are skipped by overlap detection.
type RecentLogEntry struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Content   string     `json:"content"`
}

// RecentActivityContext is a read-only snapshot of the user's recent logs.
// The engine never mutates it.
type RecentActivityContext struct {
	RecentLogs []RecentLogEntry `json:"recent_logs"`
}

// ComplexityBucket is the coarse complexity classification of the input.
type ComplexityBucket string

const (
	ComplexitySimple  ComplexityBucket = "simple"
	ComplexityMedium  ComplexityBucket = "medium"
	ComplexityComplex ComplexityBucket = "complex"
)

// InputCharacteristics summarizes the shape of the raw input.
type InputCharacteristics struct {
	Length                int              `json:"length"`
	HasExplicitTime       bool             `json:"has_explicit_time"`
	HasMultipleActivities bool             `json:"has_multiple_activities"`
	Complexity            ComplexityBucket `json:"complexity"`
}

// QualityMetrics summarizes how trustworthy the analysis is.
type QualityMetrics struct {
	TimeConfidence     float64 `json:"time_confidence"`
	ActivityConfidence float64 `json:"activity_confidence"`
	ValidationScore    float64 `json:"validation_score"`
	WarningCount       int     `json:"warning_count"`
}

// AnalysisMetadata carries processing metadata for one analysis call.
type AnalysisMetadata struct {
	ProcessingTimeMs     int64                `json:"processing_time_ms"`
	InputCharacteristics InputCharacteristics `json:"input_characteristics"`
	QualityMetrics       QualityMetrics       `json:"quality_metrics"`
}

// DetailedActivityAnalysis is the root output of one analysis call.
// It is constructed fresh per call, immutable once returned, and never
// persisted by the engine itself.
type DetailedActivityAnalysis struct {
	UID               string             `json:"uid"`
	TimeAnalysis      TimeAnalysisResult `json:"time_analysis"`
	Activities        []ActivityDetail   `json:"activities"`
	Warnings          []AnalysisWarning  `json:"warnings"`
	OverallConfidence float64            `json:"overall_confidence"`
	IsValid           bool               `json:"is_valid"`
	Summary           string             `json:"summary"`
	Recommendations   []string           `json:"recommendations"`
	Metadata          AnalysisMetadata   `json:"metadata"`
}

// AnalyzeRequest is the input to Engine.Analyze.
type AnalyzeRequest struct {
	// Input is the free-text activity note.
	Input string
	// Timezone is the IANA timezone of the user. Empty means UTC.
	Timezone string
	// InputTimestamp is the instant the note was captured. A zero value is
	// defaulted from the engine clock at the entry boundary.
	InputTimestamp time.Time
	// Context is the read-only snapshot of the user's recent logs.
	Context RecentActivityContext
}
