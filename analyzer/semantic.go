package analyzer

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ayatoki/kiroku/internal/timezone"
)

// Classifier is the boundary to the external semantic classification
// service. Implementations must honor ctx cancellation and timeouts. A nil
// Classifier on the engine disables escalation entirely.
type Classifier interface {
	ClassifyTime(ctx context.Context, req *ClassifierRequest) (*ClassifierResponse, error)
}

// ClassifierRequest carries everything the classification service may use
// to reconstruct an interval from text the pattern table could not handle.
type ClassifierRequest struct {
	// CurrentTimeDisplay is the capture instant rendered in the user's
	// timezone as "2006-01-02 15:04".
	CurrentTimeDisplay string
	Timezone           string
	RawInput           string
	// RecentEntries holds up to three prior logs, each formatted as
	// "content @ 2006-01-02 15:04".
	RecentEntries []string
	// HintStart and HintEnd carry the basic resolver's tentative interval
	// in RFC3339 UTC. Both are empty when the resolver produced nothing.
	HintStart string
	HintEnd   string
}

// ClassifierResponse is the wire shape the service must return. It is
// validated strictly at this boundary; anything malformed routes the engine
// onto the synthesized fallback instead of propagating.
type ClassifierResponse struct {
	StartTime         string  `json:"startTime"`
	EndTime           string  `json:"endTime"`
	Confidence        float64 `json:"confidence"`
	Method            string  `json:"method"`
	Category          string  `json:"category,omitempty"`
	SubCategory       string  `json:"subCategory,omitempty"`
	StructuredContent string  `json:"structuredContent,omitempty"`
}

const (
	// fallbackConfidenceGate is the basic-resolver confidence at or below
	// which the engine escalates to the classifier.
	fallbackConfidenceGate = 0.6
	// dampeningGate marks a textual signal too weak for the classifier to
	// rescue: at or below it the reported confidence is capped.
	dampeningGate         = 0.3
	dampenedConfidenceCap = 0.4
	// synthesizedLookback sizes the made-up interval used when both the
	// patterns and the classifier fail.
	synthesizedLookback   = 30 * time.Minute
	synthesizedConfidence = 0.3
	maxClassifierHistory  = 3
)

var methodFromString = map[string]ExtractionMethod{
	"EXPLICIT":   MethodExplicit,
	"RELATIVE":   MethodRelative,
	"INFERRED":   MethodInferred,
	"CONTEXTUAL": MethodContextual,
}

// buildClassifierRequest assembles the structured escalation request.
func buildClassifierRequest(rawInput string, inputTS time.Time, loc *time.Location, history RecentActivityContext, basic Resolution) *ClassifierRequest {
	req := &ClassifierRequest{
		CurrentTimeDisplay: timezone.FormatLocalTime(inputTS, loc),
		Timezone:           loc.String(),
		RawInput:           rawInput,
	}
	for _, entry := range history.RecentLogs {
		if len(req.RecentEntries) == maxClassifierHistory {
			break
		}
		if entry.StartTime == nil {
			continue
		}
		req.RecentEntries = append(req.RecentEntries, timezone.FormatLogForContext(entry.Content, *entry.StartTime, loc))
	}
	if basic.Start != nil && basic.End != nil {
		req.HintStart = basic.Start.Format(time.RFC3339)
		req.HintEnd = basic.End.Format(time.RFC3339)
	}
	return req
}

// parseClassifierResponse validates the service reply and converts it into
// a resolution. Every field is checked; the engine never trusts the
// classifier's structure.
func parseClassifierResponse(resp *ClassifierResponse) (Resolution, error) {
	if resp == nil {
		return Resolution{}, errors.New("empty classifier response")
	}
	start, err := time.Parse(time.RFC3339, resp.StartTime)
	if err != nil {
		return Resolution{}, errors.Wrapf(err, "invalid start time %q", resp.StartTime)
	}
	end, err := time.Parse(time.RFC3339, resp.EndTime)
	if err != nil {
		return Resolution{}, errors.Wrapf(err, "invalid end time %q", resp.EndTime)
	}
	if !start.Before(end) {
		return Resolution{}, errors.Errorf("start %s is not before end %s", resp.StartTime, resp.EndTime)
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return Resolution{}, errors.Errorf("confidence %v outside [0,1]", resp.Confidence)
	}
	method, ok := methodFromString[strings.ToUpper(strings.TrimSpace(resp.Method))]
	if !ok {
		return Resolution{}, errors.Errorf("unknown extraction method %q", resp.Method)
	}
	s := start.UTC()
	e := end.UTC()
	return Resolution{Start: &s, End: &e, Confidence: resp.Confidence, Method: method}, nil
}

// dampenResolution caps classifier output when the textual signal was too
// weak to corroborate it.
func dampenResolution(res Resolution, hadCandidates bool, basicConf float64) Resolution {
	if !hadCandidates || basicConf <= dampeningGate {
		if res.Confidence > dampenedConfidenceCap {
			res.Confidence = dampenedConfidenceCap
		}
		res.Method = MethodInferred
	}
	return res
}

// synthesizeFallback fabricates a low-confidence interval ending at the
// capture instant. It is the terminal fallback and never fails.
func synthesizeFallback(inputTS time.Time) Resolution {
	start := inputTS.Add(-synthesizedLookback).UTC()
	end := inputTS.UTC()
	return Resolution{Start: &start, End: &end, Confidence: synthesizedConfidence, Method: MethodInferred}
}
