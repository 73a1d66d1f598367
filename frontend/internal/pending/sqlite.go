package pending

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/studcollab/looped/shared/logger"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pending_lists (
	scope      TEXT NOT NULL,
	kind       TEXT NOT NULL,
	items      TEXT NOT NULL,
	version    INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (scope, kind)
);`

// SQLite is the on-disk store used by the CLI and single-instance
// deployments.
type SQLite struct {
	sqlStore
	path string
}

var _ Store = (*SQLite)(nil)

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create pending store dir: %w", err)
		}
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open pending store: %w", err)
	}
	// one writer at a time; busy_timeout covers other processes
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init pending store schema: %w", err)
	}
	logger.Log.Debug("pending store opened", "component", "pending_store", "driver", "sqlite", "path", path)
	return &SQLite{
		sqlStore: sqlStore{
			db:        db,
			retryable: isSQLiteBusy,
			name:      "sqlite",
		},
		path: path,
	}, nil
}

func isSQLiteBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
