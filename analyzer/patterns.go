package analyzer

import (
	"regexp"
	"strconv"
)

// CandidateKind discriminates the payload of a Candidate.
type CandidateKind int

const (
	KindClockRange CandidateKind = iota
	KindClockPoint
	KindDuration
	KindRelative
	KindDayPart
)

// ClockRange is an explicit start and end stated as times of day.
type ClockRange struct {
	StartHour, StartMin int
	EndHour, EndMin     int
}

// ClockPoint is a single stated time of day.
type ClockPoint struct {
	Hour, Min int
}

// DurationSpan is a stated activity length in minutes.
type DurationSpan struct {
	Minutes int
}

// RelativeOffset says the activity started Minutes before the capture instant.
type RelativeOffset struct {
	Minutes int
}

// DayPartRange is a named part of day with canonical clock bounds.
type DayPartRange struct {
	Name               string
	StartHour, EndHour int
	CrossesMidnight    bool
}

// Candidate is one scored interpretation of a time expression found in the
// normalized text. Exactly one payload pointer is non-nil, selected by Kind.
// Spans are rune offsets into the normalized text.
type Candidate struct {
	Kind       CandidateKind
	Pattern    string
	Raw        string
	SpanStart  int
	SpanEnd    int
	Confidence float64

	Range    *ClockRange
	Point    *ClockPoint
	Duration *DurationSpan
	Offset   *RelativeOffset
	DayPart  *DayPartRange
}

// matchText wraps one regexp submatch (byte indices into text) so parse
// functions can read capture groups without re-slicing by hand.
type matchText struct {
	text string
	idx  []int
}

func (m matchText) group(n int) string {
	lo, hi := m.idx[2*n], m.idx[2*n+1]
	if lo < 0 || hi < 0 {
		return ""
	}
	return m.text[lo:hi]
}

func parseDigits(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func clockValid(hour, minute int) bool {
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}

// minutePart decodes the optional minute suffix of a kanji clock or duration
// expression: explicit digits ("15分"), the half marker ("半"), or nothing.
func minutePart(part, digits string) (int, bool) {
	switch {
	case digits != "":
		return parseDigits(digits)
	case part == "半":
		return 30, true
	default:
		return 0, true
	}
}

// colonRangePattern is shared with the input-agreement validator, which
// re-derives the implied interval straight from the raw digits.
var colonRangePattern = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(?:-|から)\s*(\d{1,2}):(\d{2})(?:まで)?`)

// timePattern is one entry of the fixed pattern table. Patterns are tried in
// declaration order; the order also breaks confidence ties after scoring.
type timePattern struct {
	name     string
	baseConf float64
	// fixed patterns keep baseConf as-is, skipping contextual adjustments.
	fixed bool
	re    *regexp.Regexp
	parse func(m matchText) (Candidate, bool)
}

var timePatterns = []timePattern{
	{
		name:     "colon_range",
		baseConf: 0.90,
		re:       colonRangePattern,
		parse: func(m matchText) (Candidate, bool) {
			sh, ok1 := parseDigits(m.group(1))
			sm, ok2 := parseDigits(m.group(2))
			eh, ok3 := parseDigits(m.group(3))
			em, ok4 := parseDigits(m.group(4))
			if !ok1 || !ok2 || !ok3 || !ok4 || !clockValid(sh, sm) || !clockValid(eh, em) {
				return Candidate{}, false
			}
			return Candidate{Kind: KindClockRange, Range: &ClockRange{StartHour: sh, StartMin: sm, EndHour: eh, EndMin: em}}, true
		},
	},
	{
		name:     "kanji_range",
		baseConf: 0.85,
		re:       regexp.MustCompile(`(\d{1,2})時((\d{1,2})分|半)?\s*から\s*(\d{1,2})時(間)?((\d{1,2})分|半)?(?:まで)?`),
		parse: func(m matchText) (Candidate, bool) {
			// "8時から1時間" is a start plus a duration, not a range.
			if m.group(5) == "間" {
				return Candidate{}, false
			}
			sh, ok1 := parseDigits(m.group(1))
			sm, ok2 := minutePart(m.group(2), m.group(3))
			eh, ok3 := parseDigits(m.group(4))
			em, ok4 := minutePart(m.group(6), m.group(7))
			if !ok1 || !ok2 || !ok3 || !ok4 || !clockValid(sh, sm) || !clockValid(eh, em) {
				return Candidate{}, false
			}
			return Candidate{Kind: KindClockRange, Range: &ClockRange{StartHour: sh, StartMin: sm, EndHour: eh, EndMin: em}}, true
		},
	},
	{
		name:     "clock_colon",
		baseConf: 0.70,
		re:       regexp.MustCompile(`(\d{1,2}):(\d{2})`),
		parse: func(m matchText) (Candidate, bool) {
			h, ok1 := parseDigits(m.group(1))
			mi, ok2 := parseDigits(m.group(2))
			if !ok1 || !ok2 || !clockValid(h, mi) {
				return Candidate{}, false
			}
			return Candidate{Kind: KindClockPoint, Point: &ClockPoint{Hour: h, Min: mi}}, true
		},
	},
	{
		name:     "clock_kanji",
		baseConf: 0.70,
		re:       regexp.MustCompile(`(\d{1,2})時(間)?((\d{1,2})分|半)?`),
		parse: func(m matchText) (Candidate, bool) {
			// "N時間" is a duration, handled by its own pattern.
			if m.group(2) == "間" {
				return Candidate{}, false
			}
			h, ok1 := parseDigits(m.group(1))
			mi, ok2 := minutePart(m.group(3), m.group(4))
			if !ok1 || !ok2 || !clockValid(h, mi) {
				return Candidate{}, false
			}
			return Candidate{Kind: KindClockPoint, Point: &ClockPoint{Hour: h, Min: mi}}, true
		},
	},
	{
		name:     "duration_hours",
		baseConf: 0.70,
		re:       regexp.MustCompile(`(\d+)時間((\d{1,2})分|半)?`),
		parse: func(m matchText) (Candidate, bool) {
			hours, ok1 := parseDigits(m.group(1))
			extra, ok2 := minutePart(m.group(2), m.group(3))
			if !ok1 || !ok2 || hours < 0 {
				return Candidate{}, false
			}
			return Candidate{Kind: KindDuration, Duration: &DurationSpan{Minutes: hours*60 + extra}}, true
		},
	},
	{
		name:     "duration_minutes",
		baseConf: 0.70,
		re:       regexp.MustCompile(`(\d+)分間`),
		parse: func(m matchText) (Candidate, bool) {
			n, ok := parseDigits(m.group(1))
			if !ok {
				return Candidate{}, false
			}
			return Candidate{Kind: KindDuration, Duration: &DurationSpan{Minutes: n}}, true
		},
	},
	{
		name:     "relative_minutes",
		baseConf: 0.75,
		re:       regexp.MustCompile(`(\d+)分前`),
		parse: func(m matchText) (Candidate, bool) {
			n, ok := parseDigits(m.group(1))
			if !ok {
				return Candidate{}, false
			}
			return Candidate{Kind: KindRelative, Offset: &RelativeOffset{Minutes: n}}, true
		},
	},
	{
		name:     "relative_hours",
		baseConf: 0.75,
		re:       regexp.MustCompile(`(\d+)時間((\d{1,2})分|半)?前`),
		parse: func(m matchText) (Candidate, bool) {
			hours, ok1 := parseDigits(m.group(1))
			extra, ok2 := minutePart(m.group(2), m.group(3))
			if !ok1 || !ok2 {
				return Candidate{}, false
			}
			return Candidate{Kind: KindRelative, Offset: &RelativeOffset{Minutes: hours*60 + extra}}, true
		},
	},
	{
		name:     "duration_bare_minutes",
		baseConf: 0.60,
		re:       regexp.MustCompile(`(\d+)分`),
		parse: func(m matchText) (Candidate, bool) {
			n, ok := parseDigits(m.group(1))
			if !ok {
				return Candidate{}, false
			}
			return Candidate{Kind: KindDuration, Duration: &DurationSpan{Minutes: n}}, true
		},
	},
	{
		name:     "day_part",
		baseConf: 0.60,
		re:       regexp.MustCompile(`深夜|夕方|午前|午後|朝|昼|夜`),
		parse: func(m matchText) (Candidate, bool) {
			part, ok := dayPartTable[m.group(0)]
			if !ok {
				return Candidate{}, false
			}
			return Candidate{Kind: KindDayPart, DayPart: &part}, true
		},
	},
	{
		name:     "vague_relative",
		baseConf: 0.50,
		fixed:    true,
		re:       regexp.MustCompile(`先ほど|さきほど|ちょっと前|しばらく前`),
		parse: func(m matchText) (Candidate, bool) {
			return Candidate{Kind: KindRelative, Offset: &RelativeOffset{Minutes: vagueOffsetMinutes}}, true
		},
	},
}

// vagueOffsetMinutes is the assumed look-back for vague expressions such as
// 先ほど, which state that something happened recently without a quantity.
const vagueOffsetMinutes = 30

// dayPartTable maps day-part keywords to their canonical local clock bounds.
// 深夜 runs past midnight, so its end lands on the following day.
var dayPartTable = map[string]DayPartRange{
	"朝":  {Name: "朝", StartHour: 7, EndHour: 9},
	"午前": {Name: "午前", StartHour: 9, EndHour: 12},
	"昼":  {Name: "昼", StartHour: 12, EndHour: 13},
	"午後": {Name: "午後", StartHour: 13, EndHour: 17},
	"夕方": {Name: "夕方", StartHour: 17, EndHour: 19},
	"夜":  {Name: "夜", StartHour: 19, EndHour: 23},
	"深夜": {Name: "深夜", StartHour: 23, EndHour: 2, CrossesMidnight: true},
}
