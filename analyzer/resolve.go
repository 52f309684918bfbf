package analyzer

import "time"

// Resolution is the basic resolver's tentative interval. Start and End are
// nil when the candidate could not be resolved; only Confidence carries
// meaning then, and callers must not treat it as a valid interval.
type Resolution struct {
	Start      *time.Time
	End        *time.Time
	Confidence float64
	Method     ExtractionMethod
}

// unresolvedConfidence is reported when resolution produced no interval.
const unresolvedConfidence = 0.3

// resolveCandidate turns the best candidate into a concrete UTC interval.
// All date math anchors on inputTS interpreted in loc, never on the wall
// clock, so identical inputs resolve identically regardless of when the
// engine runs. Intervals are clamped to a one-minute minimum.
func resolveCandidate(c Candidate, inputTS time.Time, loc *time.Location) Resolution {
	local := inputTS.In(loc)

	switch c.Kind {
	case KindClockRange:
		if c.Range == nil {
			break
		}
		r := c.Range
		start := time.Date(local.Year(), local.Month(), local.Day(), r.StartHour, r.StartMin, 0, 0, loc)
		end := time.Date(local.Year(), local.Month(), local.Day(), r.EndHour, r.EndMin, 0, 0, loc)
		// A single flip covers both triggers; applying them separately
		// would push 23:00-01:00 two days ahead.
		if !end.After(start) || (r.StartHour >= 22 && r.EndHour <= 6) {
			end = end.AddDate(0, 0, 1)
		}
		return resolved(start, end, c.Confidence, MethodExplicit)

	case KindClockPoint:
		if c.Point == nil {
			break
		}
		end := local
		start := time.Date(local.Year(), local.Month(), local.Day(), c.Point.Hour, c.Point.Min, 0, 0, loc)
		if start.After(end) {
			start = start.AddDate(0, 0, -1)
		}
		if end.Sub(start) < time.Minute {
			start = end.Add(-time.Minute)
		}
		return resolved(start, end, c.Confidence, MethodExplicit)

	case KindDuration:
		if c.Duration == nil {
			break
		}
		minutes := c.Duration.Minutes
		if minutes < 1 {
			minutes = 1
		}
		end := local
		return resolved(end.Add(-time.Duration(minutes)*time.Minute), end, c.Confidence, MethodRelative)

	case KindRelative:
		if c.Offset == nil {
			break
		}
		minutes := c.Offset.Minutes
		if minutes < 0 {
			minutes = -minutes
		}
		if minutes < 1 {
			minutes = 1
		}
		end := local
		return resolved(end.Add(-time.Duration(minutes)*time.Minute), end, c.Confidence, MethodRelative)

	case KindDayPart:
		if c.DayPart == nil {
			break
		}
		p := c.DayPart
		start := time.Date(local.Year(), local.Month(), local.Day(), p.StartHour, 0, 0, 0, loc)
		end := time.Date(local.Year(), local.Month(), local.Day(), p.EndHour, 0, 0, 0, loc)
		if p.CrossesMidnight || !end.After(start) {
			end = end.AddDate(0, 0, 1)
		}
		return resolved(start, end, c.Confidence, MethodExplicit)
	}

	return Resolution{Confidence: unresolvedConfidence}
}

func resolved(start, end time.Time, conf float64, method ExtractionMethod) Resolution {
	s := start.UTC()
	e := end.UTC()
	return Resolution{Start: &s, End: &e, Confidence: conf, Method: method}
}

func minutesBetween(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}
