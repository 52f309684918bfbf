package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// maxMatchRunes bounds the text fed to the pattern table. Longer notes are
// still analyzed, but only their head is scanned for time expressions.
const maxMatchRunes = 512

const (
	bonusColonForm     = 0.10
	bonusContextWord   = 0.05
	bonusLongMatch     = 0.05
	penaltyDigitsOnly  = 0.20
	contextWindowRunes = 5
	longMatchRunes     = 10
)

var (
	colonFormPattern  = regexp.MustCompile(`\d{1,2}:\d{2}`)
	digitsOnlyPattern = regexp.MustCompile(`^\d+$`)
)

// contextKeywords are particles that mark a match as a deliberate time
// statement when they appear in or near it.
var contextKeywords = []string{"から", "まで", "間"}

// matchPatterns runs the full pattern table over the normalized text and
// returns a confidence-ordered, span-disjoint candidate list. The first
// element, when present, is the best interpretation.
func matchPatterns(normalized string) []Candidate {
	text := truncateRunes(normalized, maxMatchRunes)
	runes := []rune(text)

	// FindAllStringSubmatchIndex reports byte offsets; spans are rune based.
	runeAt := make(map[int]int, len(runes)+1)
	r := 0
	for i := range text {
		runeAt[i] = r
		r++
	}
	runeAt[len(text)] = r

	var collected []Candidate
	for _, p := range timePatterns {
		for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
			cand, ok := p.parse(matchText{text: text, idx: idx})
			if !ok {
				continue
			}
			cand.Pattern = p.name
			cand.Raw = text[idx[0]:idx[1]]
			cand.SpanStart = runeAt[idx[0]]
			cand.SpanEnd = runeAt[idx[1]]
			cand.Confidence = p.baseConf
			if !p.fixed {
				cand.Confidence = adjustConfidence(p.baseConf, cand.Raw, runes, cand.SpanStart, cand.SpanEnd)
			}
			collected = append(collected, cand)
		}
	}

	// Stable sort keeps pattern declaration order as the tie-break.
	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].Confidence > collected[j].Confidence
	})
	return dedupeBySpan(collected)
}

// adjustConfidence applies the contextual scoring rules to one match and
// clamps the result to [0,1].
func adjustConfidence(base float64, raw string, runes []rune, spanStart, spanEnd int) float64 {
	conf := base
	if colonFormPattern.MatchString(raw) {
		conf += bonusColonForm
	}
	lo := spanStart - contextWindowRunes
	if lo < 0 {
		lo = 0
	}
	hi := spanEnd + contextWindowRunes
	if hi > len(runes) {
		hi = len(runes)
	}
	window := string(runes[lo:hi])
	for _, kw := range contextKeywords {
		if strings.Contains(window, kw) {
			conf += bonusContextWord
			break
		}
	}
	if digitsOnlyPattern.MatchString(raw) {
		conf -= penaltyDigitsOnly
	}
	if utf8.RuneCountInString(raw) > longMatchRunes {
		conf += bonusLongMatch
	}
	return clampUnit(conf)
}

// dedupeBySpan greedily keeps the highest-confidence match per text region.
// Input must already be sorted by confidence descending.
func dedupeBySpan(cands []Candidate) []Candidate {
	accepted := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		overlaps := false
		for _, a := range accepted {
			if c.SpanStart < a.SpanEnd && a.SpanStart < c.SpanEnd {
				overlaps = true
				break
			}
		}
		if !overlaps {
			accepted = append(accepted, c)
		}
	}
	return accepted
}

// extractComponents converts accepted candidates into the reportable
// component list. A range contributes both a start and an end component.
func extractComponents(cands []Candidate) []ParsedTimeComponent {
	comps := make([]ParsedTimeComponent, 0, len(cands))
	for _, c := range cands {
		switch c.Kind {
		case KindClockRange:
			comps = append(comps,
				newComponent(ComponentStartTime, c, fmt.Sprintf("%02d:%02d", c.Range.StartHour, c.Range.StartMin)),
				newComponent(ComponentEndTime, c, fmt.Sprintf("%02d:%02d", c.Range.EndHour, c.Range.EndMin)))
		case KindClockPoint:
			comps = append(comps, newComponent(ComponentStartTime, c, fmt.Sprintf("%02d:%02d", c.Point.Hour, c.Point.Min)))
		case KindDuration:
			comps = append(comps, newComponent(ComponentDuration, c, fmt.Sprintf("%dm", c.Duration.Minutes)))
		case KindRelative:
			comps = append(comps, newComponent(ComponentRelativeTime, c, fmt.Sprintf("-%dm", c.Offset.Minutes)))
		case KindDayPart:
			comps = append(comps, newComponent(ComponentTimePeriod, c, fmt.Sprintf("%02d:00-%02d:00", c.DayPart.StartHour, c.DayPart.EndHour)))
		}
	}
	return comps
}

func newComponent(t ComponentType, c Candidate, normalized string) ParsedTimeComponent {
	return ParsedTimeComponent{
		Type:       t,
		Raw:        c.Raw,
		Normalized: normalized,
		Confidence: c.Confidence,
		SpanStart:  c.SpanStart,
		SpanEnd:    c.SpanEnd,
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
