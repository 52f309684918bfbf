package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods the history database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Ping(ctx context.Context) error

	// ActivityLog model related methods. All access is read-only; the
	// companion bot owns the table.
	ListActivityLogs(ctx context.Context, find *FindActivityLog) ([]*ActivityLog, error)
}
