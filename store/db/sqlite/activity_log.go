package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ayatoki/kiroku/store"
)

func (d *DB) ListActivityLogs(ctx context.Context, find *store.FindActivityLog) ([]*store.ActivityLog, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "activity_logs.id = "+placeholder(len(args)+1)), append(args, *v)
	}

	// Newest entries first; ties broken by id so pagination stays stable.
	orderBy := "ORDER BY activity_logs.created_ts DESC, activity_logs.id DESC"

	query := `
		SELECT
			id, created_ts, content, started_ts, ended_ts
		FROM activity_logs
		WHERE ` + strings.Join(where, " AND ") + ` ` + orderBy

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ActivityLog, 0)
	for rows.Next() {
		var log store.ActivityLog
		var startedTs, endedTs sql.NullInt64

		if err := rows.Scan(
			&log.ID,
			&log.CreatedTs,
			&log.Content,
			&startedTs,
			&endedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}

		if startedTs.Valid {
			log.StartedTs = &startedTs.Int64
		}
		if endedTs.Valid {
			log.EndedTs = &endedTs.Int64
		}

		list = append(list, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity logs: %w", err)
	}

	return list, nil
}
