package analyzer

import (
	"regexp"
	"strings"
)

// The normalizer rewrites raw input into a canonical form the pattern
// matcher can work on. Rewrites run in a fixed order; later rules assume
// the earlier ones already applied (e.g. the bare さっき rule must not see
// さっきN時間, which the quantified rule consumes first).
var (
	fullWidthReplacer = strings.NewReplacer(
		"０", "0", "１", "1", "２", "2", "３", "3", "４", "4",
		"５", "5", "６", "6", "７", "7", "８", "8", "９", "9",
		"：", ":", "％", "%", "［", "[", "］", "]", "　", " ",
	)

	capturePrefixPattern  = regexp.MustCompile(`^\s*\[\d{1,2}:\d{2}\]\s*`)
	rangeSeparatorPattern = regexp.MustCompile(`[〜～－−–—]`)
	// ー is the long vowel mark; it only acts as a range dash between digits.
	digitDashPattern = regexp.MustCompile(`(\d)ー(\d)`)

	// Approximation suffixes carry no information once the quantity is kept.
	connectivePattern = regexp.MustCompile(`(\d+(?:時間半|時間|分間|分|時))(?:ぐらい|くらい|ほど|ごろ|頃)`)

	// さっき with an explicit quantity keeps the quantity as the offset.
	sakkiHoursPattern   = regexp.MustCompile(`さっき(\d+)時間(半)?`)
	sakkiMinutesPattern = regexp.MustCompile(`さっき(\d+)分`)

	// 今 as a standalone word means "just now". The exclusion set keeps
	// compounds such as 今日, 今週, 今朝 or 今後 intact.
	nowMidPattern = regexp.MustCompile(`今([^日朝晩週月年度回夜後])`)
	nowEndPattern = regexp.MustCompile(`今$`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes one raw activity note. It is pure and total:
// any input, including empty, yields a (possibly empty) normalized string.
func Normalize(input string) string {
	s := fullWidthReplacer.Replace(input)
	s = capturePrefixPattern.ReplaceAllString(s, "")
	s = rangeSeparatorPattern.ReplaceAllString(s, "-")
	s = digitDashPattern.ReplaceAllString(s, "${1}-${2}")
	s = connectivePattern.ReplaceAllString(s, "${1}")
	s = sakkiHoursPattern.ReplaceAllString(s, "${1}時間${2}前")
	s = sakkiMinutesPattern.ReplaceAllString(s, "${1}分前")
	s = strings.ReplaceAll(s, "さっき", "30分前")
	s = strings.ReplaceAll(s, "少し前", "15分前")
	s = strings.ReplaceAll(s, "たった今", "0分前")
	s = nowMidPattern.ReplaceAllString(s, "0分前${1}")
	s = nowEndPattern.ReplaceAllString(s, "0分前")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
