// Package analyzer implements the activity note analysis pipeline:
// normalization of Japanese time expressions, pattern matching, interval
// resolution with an optional semantic fallback, activity decomposition,
// and consistency validation.
package analyzer

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	kerrors "github.com/ayatoki/kiroku/internal/errors"
	"github.com/ayatoki/kiroku/internal/observability"
	"github.com/ayatoki/kiroku/internal/timezone"
)

// Engine runs the analysis pipeline. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	classifier Classifier
	clock      func() time.Time
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier enables semantic fallback through c. Without it the engine
// runs offline and keeps the basic resolver's result.
func WithClassifier(c Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithClock overrides the wall clock. The clock only feeds capture-instant
// defaulting and processing metadata; all interval math anchors on the
// request's InputTimestamp.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger routes engine logs through logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine builds an engine with the given options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze runs the full pipeline over one activity note. It never fails on
// empty or malformed text; a best-effort INFERRED result comes back instead.
// The only returned error class is an unresolvable timezone.
func (e *Engine) Analyze(ctx context.Context, req *AnalyzeRequest) (*DetailedActivityAnalysis, error) {
	started := e.clock()
	if req == nil {
		req = &AnalyzeRequest{}
	}

	loc, err := timezone.Parse(req.Timezone)
	if err != nil {
		return nil, err
	}
	inputTS := req.InputTimestamp
	if inputTS.IsZero() {
		inputTS = e.clock()
	}

	reqCtx := observability.NewRequestContext(e.logger, "analyzer")
	reqCtx.Debug("analysis started",
		slog.Int(observability.LogFieldInputLen, utf8.RuneCountInString(req.Input)),
		slog.String(observability.LogFieldTimezone, loc.String()),
	)

	normalized := Normalize(req.Input)
	candidates := matchPatterns(normalized)
	ta := e.resolveInterval(ctx, reqCtx, req, candidates, inputTS, loc)

	signals := detectOverlaps(ta.StartTime, ta.EndTime, req.Context)
	activities, complexity := decomposeActivities(normalized, ta)
	verdict := validateAnalysis(ta, activities, signals, req.Input)
	result := assembleAnalysis(req.Input, ta, activities, verdict, complexity, e.clock().Sub(started).Milliseconds())

	reqCtx.Info("analysis completed",
		slog.String("uid", result.UID),
		slog.String(observability.LogFieldMethod, string(ta.Method)),
		slog.Float64(observability.LogFieldConfidence, result.OverallConfidence),
		slog.Int(observability.LogFieldWarningCount, len(result.Warnings)),
		slog.Bool("is_valid", result.IsValid),
	)
	return result, nil
}

// resolveInterval applies the basic resolver to the best candidate and
// escalates to the semantic classifier when the textual signal is weak.
// Every path yields a usable interval; classifier failures are absorbed.
func (e *Engine) resolveInterval(ctx context.Context, reqCtx *observability.RequestContext, req *AnalyzeRequest, candidates []Candidate, inputTS time.Time, loc *time.Location) TimeAnalysisResult {
	basic := Resolution{}
	if len(candidates) > 0 {
		basic = resolveCandidate(candidates[0], inputTS, loc)
	}

	final := basic
	switch {
	case len(candidates) > 0 && basic.Confidence > fallbackConfidenceGate && basic.Start != nil:
		// Strong textual signal; no escalation.

	case e.classifier == nil:
		// Offline mode: keep even a weak basic interval, synthesize when
		// there is none at all.
		if basic.Start == nil {
			final = synthesizeFallback(inputTS)
		}

	default:
		final = e.classify(ctx, reqCtx, req, candidates, basic, inputTS, loc)
	}

	return TimeAnalysisResult{
		StartTime:           final.Start.UTC(),
		EndTime:             final.End.UTC(),
		TotalMinutes:        minutesBetween(*final.Start, *final.End),
		Confidence:          final.Confidence,
		Method:              final.Method,
		Timezone:            loc.String(),
		ExtractedComponents: extractComponents(candidates),
	}
}

func (e *Engine) classify(ctx context.Context, reqCtx *observability.RequestContext, req *AnalyzeRequest, candidates []Candidate, basic Resolution, inputTS time.Time, loc *time.Location) Resolution {
	resp, err := e.classifier.ClassifyTime(ctx, buildClassifierRequest(req.Input, inputTS, loc, req.Context, basic))
	if err != nil {
		absorbed := kerrors.AIAnalysisFailed("semantic classification failed", err)
		reqCtx.Warn("classifier unavailable, synthesizing fallback interval",
			slog.String(observability.LogFieldErrorCode, string(absorbed.GetCode())),
			slog.String("error", absorbed.Error()),
		)
		return synthesizeFallback(inputTS)
	}

	parsed, err := parseClassifierResponse(resp)
	if err != nil {
		absorbed := kerrors.AIAnalysisFailed("classifier response rejected", err)
		reqCtx.Warn("classifier response rejected, synthesizing fallback interval",
			slog.String(observability.LogFieldErrorCode, string(absorbed.GetCode())),
			slog.String("error", absorbed.Error()),
		)
		return synthesizeFallback(inputTS)
	}

	return dampenResolution(parsed, len(candidates) > 0, basic.Confidence)
}
