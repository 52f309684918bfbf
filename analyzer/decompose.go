package analyzer

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// activitySeparators mark parallel activities, in matching priority order.
// Splitting keeps everything after the first separator in the second
// fragment, so a note never yields more than two activities.
var activitySeparators = []string{"しながら", "ながら", "と同時に", "並行して", "、", ","}

// separatorScoreList backs complexity scoring. しながら is omitted because
// counting ながら already covers it.
var separatorScoreList = []string{"ながら", "と同時に", "並行して", "、", ","}

// percentPattern picks up an explicit share like 30%. The normalizer has
// already folded ％ into %.
var percentPattern = regexp.MustCompile(`(\d{1,3})%`)

type categoryEntry struct {
	category string
	keywords []string
}

// categoryTable resolves a fragment to a coarse category by substring
// lookup, first match wins in table order.
var categoryTable = []categoryEntry{
	{"development", []string{"リファクタリング", "プログラミング", "コーディング", "コードレビュー", "バグ修正", "実装", "開発", "デバッグ", "テスト", "設計", "レビュー"}},
	{"meeting", []string{"ミーティング", "打ち合わせ", "打合せ", "会議", "朝会", "夕会", "面談", "商談", "MTG", "mtg"}},
	{"research", []string{"情報収集", "リサーチ", "調査", "検証", "学習", "勉強", "論文"}},
	{"admin", []string{"事務", "経費", "申請", "メール", "書類", "雑務", "報告書", "日報"}},
	{"break", []string{"休憩", "昼寝", "仮眠", "散歩", "コーヒー", "ストレッチ"}},
	{"commute", []string{"通勤", "移動", "出社", "帰宅", "電車", "出張"}},
	{"meal", []string{"昼食", "夕食", "朝食", "ランチ", "ディナー", "食事", "ご飯", "弁当"}},
}

// categoryUncategorized is the fallback when no keyword matches.
const categoryUncategorized = "uncategorized"

const (
	defaultPrimaryShare   = 70.0
	defaultSecondaryShare = 30.0

	baseActivityConfidence     = 0.9
	penaltyUncategorized       = 0.2
	penaltyDefaultSplit        = 0.1
	penaltyShortFragment       = 0.1
	clampConfidenceFactorLow   = 0.8
	clampConfidenceFactorHigh  = 0.9
	minFragmentRunes           = 2
	priorityPrimaryThreshold   = 80.0
	prioritySecondaryThreshold = 20.0
)

// decomposeActivities splits the normalized note into activity details with
// a time-percentage allocation, and classifies the input's complexity.
func decomposeActivities(normalized string, ta TimeAnalysisResult) ([]ActivityDetail, ComplexityBucket) {
	fragments := splitFragments(normalized)
	complexity := classifyComplexity(normalized, ta.ExtractedComponents)

	shares, defaultSplit := allocateShares(fragments)
	shares = normalizeShares(shares)

	activities := make([]ActivityDetail, 0, len(fragments))
	for i, fragment := range fragments {
		category, subCategory := classifyFragment(fragment)

		conf := baseActivityConfidence
		if category == categoryUncategorized {
			conf -= penaltyUncategorized
		}
		if defaultSplit {
			conf -= penaltyDefaultSplit
		}
		if utf8.RuneCountInString(fragment) < minFragmentRunes {
			conf -= penaltyShortFragment
		}

		pct := shares[i]
		minutes := int(math.Round(float64(ta.TotalMinutes) * pct / 100))
		if ta.TotalMinutes > 0 {
			if minutes < 1 {
				minutes = 1
				pct = round1(100 * float64(minutes) / float64(ta.TotalMinutes))
				conf *= clampConfidenceFactorLow
			} else if minutes > ta.TotalMinutes {
				minutes = ta.TotalMinutes
				pct = 100
				conf *= clampConfidenceFactorHigh
			}
		}

		activities = append(activities, ActivityDetail{
			Content:        fragment,
			Category:       category,
			SubCategory:    subCategory,
			TimePercentage: pct,
			ActualMinutes:  minutes,
			Priority:       priorityForShare(pct),
			Confidence:     clampUnit(conf),
		})
	}
	return activities, complexity
}

// splitFragments returns either the whole trimmed note or exactly two
// non-empty fragments around the first usable separator.
func splitFragments(text string) []string {
	for _, sep := range activitySeparators {
		if !strings.Contains(text, sep) {
			continue
		}
		parts := strings.SplitN(text, sep, 2)
		first := trimFragment(parts[0])
		second := trimFragment(parts[1])
		if first == "" || second == "" {
			continue
		}
		return []string{first, second}
	}
	return []string{trimFragment(text)}
}

func trimFragment(s string) string {
	return strings.Trim(s, " 、。，,.")
}

func classifyFragment(fragment string) (category, subCategory string) {
	for _, entry := range categoryTable {
		for _, kw := range entry.keywords {
			if strings.Contains(fragment, kw) {
				return entry.category, kw
			}
		}
	}
	return categoryUncategorized, ""
}

// allocateShares derives the percentage share per fragment. An explicit N%
// wins; one-sided notation gives the other fragment the remainder; otherwise
// parallel activities default to 70/30. The second return reports whether
// the default split was applied.
func allocateShares(fragments []string) ([]float64, bool) {
	if len(fragments) == 1 {
		return []float64{100}, false
	}
	p0, ok0 := explicitShare(fragments[0])
	p1, ok1 := explicitShare(fragments[1])
	switch {
	case ok0 && ok1:
		return []float64{p0, p1}, false
	case ok0:
		return []float64{p0, 100 - p0}, false
	case ok1:
		return []float64{100 - p1, p1}, false
	default:
		return []float64{defaultPrimaryShare, defaultSecondaryShare}, true
	}
}

func explicitShare(fragment string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(fragment)
	if m == nil {
		return 0, false
	}
	n, ok := parseDigits(m[1])
	if !ok {
		return 0, false
	}
	if n > 100 {
		n = 100
	}
	return float64(n), true
}

// normalizeShares rescales shares that drift more than one point off 100 so
// they sum to exactly 100.0 at one decimal place. The last entry absorbs the
// rounding residue, which makes the function idempotent.
func normalizeShares(shares []float64) []float64 {
	if len(shares) == 0 {
		return shares
	}
	sum := 0.0
	for _, s := range shares {
		sum += s
	}
	if math.Abs(sum-100) <= 1 {
		return shares
	}
	out := make([]float64, len(shares))
	if sum <= 0 {
		even := round1(100 / float64(len(shares)))
		running := 0.0
		for i := range out {
			if i == len(out)-1 {
				out[i] = round1(100 - running)
				break
			}
			out[i] = even
			running += even
		}
		return out
	}
	running := 0.0
	for i, s := range shares {
		if i == len(shares)-1 {
			out[i] = round1(100 - running)
			break
		}
		out[i] = round1(s * 100 / sum)
		running += out[i]
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func priorityForShare(pct float64) ActivityPriority {
	switch {
	case pct >= priorityPrimaryThreshold:
		return PriorityPrimary
	case pct >= prioritySecondaryThreshold:
		return PrioritySecondary
	default:
		return PriorityBackground
	}
}

// classifyComplexity scores the note's shape into a coarse bucket. Time
// expressions are counted as distinct matched spans, so a range counts once.
func classifyComplexity(normalized string, components []ParsedTimeComponent) ComplexityBucket {
	score := 0
	length := utf8.RuneCountInString(normalized)
	if length > 20 {
		score++
	}
	if length > 40 {
		score++
	}
	for _, sep := range separatorScoreList {
		score += strings.Count(normalized, sep)
	}
	if countCategoryKeywords(normalized) >= 2 {
		score++
	}
	if countDistinctSpans(components) >= 2 {
		score++
	}
	switch {
	case score <= 1:
		return ComplexitySimple
	case score <= 3:
		return ComplexityMedium
	default:
		return ComplexityComplex
	}
}

func countCategoryKeywords(text string) int {
	n := 0
	for _, entry := range categoryTable {
		for _, kw := range entry.keywords {
			n += strings.Count(text, kw)
		}
	}
	return n
}

func countDistinctSpans(components []ParsedTimeComponent) int {
	type span struct{ start, end int }
	seen := make(map[span]struct{}, len(components))
	for _, c := range components {
		seen[span{c.SpanStart, c.SpanEnd}] = struct{}{}
	}
	return len(seen)
}
