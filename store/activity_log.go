package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/ayatoki/kiroku/analyzer"
	kerrors "github.com/ayatoki/kiroku/internal/errors"
	"github.com/ayatoki/kiroku/internal/observability"
)

// ActivityLog is one row of the activity log the companion bot records.
// This service only reads the table; the bot owns the schema and all writes.
type ActivityLog struct {
	ID        int32
	CreatedTs int64
	Content   string

	// StartedTs and EndedTs are unix seconds. Either may be missing when
	// the bot stored a note it could not anchor to an interval.
	StartedTs *int64
	EndedTs   *int64
}

// FindActivityLog is the find condition for activity logs.
type FindActivityLog struct {
	ID *int32

	// Pagination
	Limit  *int
	Offset *int
}

// ListActivityLogs lists activity logs with filter, newest first.
func (s *Store) ListActivityLogs(ctx context.Context, find *FindActivityLog) ([]*ActivityLog, error) {
	return s.driver.ListActivityLogs(ctx, find)
}

// RecentContext loads the newest HistoryWindow entries as analysis context.
// History is advisory: a load failure degrades to an empty context so the
// caller can keep analyzing without it.
func (s *Store) RecentContext(ctx context.Context) analyzer.RecentActivityContext {
	if s.profile == nil || s.profile.HistoryWindow <= 0 {
		return analyzer.RecentActivityContext{}
	}

	limit := s.profile.HistoryWindow
	logs, err := s.ListActivityLogs(ctx, &FindActivityLog{Limit: &limit})
	if err != nil {
		absorbed := kerrors.ContextLoadFailed("failed to load recent activity logs", err)
		slog.Warn("history unavailable, analyzing without context",
			slog.String(observability.LogFieldErrorCode, string(kerrors.ErrCodeContextLoadFailed)),
			slog.String("error", absorbed.Error()))
		return analyzer.RecentActivityContext{}
	}

	entries := make([]analyzer.RecentLogEntry, 0, len(logs))
	for _, log := range logs {
		entries = append(entries, analyzer.RecentLogEntry{
			StartTime: log.ParseStartedTime(),
			EndTime:   log.ParseEndedTime(),
			Content:   log.Content,
		})
	}
	return analyzer.RecentActivityContext{RecentLogs: entries}
}

// ParseStartedTime parses the recorded start to UTC time.
func (l *ActivityLog) ParseStartedTime() *time.Time {
	if l.StartedTs == nil {
		return nil
	}
	t := time.Unix(*l.StartedTs, 0).UTC()
	return &t
}

// ParseEndedTime parses the recorded end to UTC time.
func (l *ActivityLog) ParseEndedTime() *time.Time {
	if l.EndedTs == nil {
		return nil
	}
	t := time.Unix(*l.EndedTs, 0).UTC()
	return &t
}
