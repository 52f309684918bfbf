package analyzer

import "time"

// OverlapSignal describes how the resolved interval relates to one recent
// log entry. Signals only feed the consistency validator; they never modify
// the resolved interval.
type OverlapSignal struct {
	Entry          RecentLogEntry
	ExactDuplicate bool
	OverlapMinutes int
}

// detectOverlaps compares the resolved interval against recent history.
// Entries lacking either endpoint are skipped. O(n) in history size.
func detectOverlaps(start, end time.Time, history RecentActivityContext) []OverlapSignal {
	var signals []OverlapSignal
	for _, entry := range history.RecentLogs {
		if entry.StartTime == nil || entry.EndTime == nil {
			continue
		}
		if entry.StartTime.Equal(start) && entry.EndTime.Equal(end) {
			signals = append(signals, OverlapSignal{
				Entry:          entry,
				ExactDuplicate: true,
				OverlapMinutes: minutesBetween(start, end),
			})
			continue
		}
		if overlap := overlapMinutes(start, end, *entry.StartTime, *entry.EndTime); overlap > 0 {
			signals = append(signals, OverlapSignal{Entry: entry, OverlapMinutes: overlap})
		}
	}
	return signals
}

// overlapMinutes is max(0, min(e1,e2) − max(s1,s2)) in whole minutes.
// Symmetric in its two intervals.
func overlapMinutes(start1, end1, start2, end2 time.Time) int {
	latestStart := start1
	if start2.After(latestStart) {
		latestStart = start2
	}
	earliestEnd := end1
	if end2.Before(earliestEnd) {
		earliestEnd = end2
	}
	if !earliestEnd.After(latestStart) {
		return 0
	}
	return minutesBetween(latestStart, earliestEnd)
}
