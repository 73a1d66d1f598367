package pending

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/studcollab/looped/shared/logger"
	"github.com/studcollab/looped/shared/storage/pg"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS pending_lists (
	scope      TEXT NOT NULL,
	kind       TEXT NOT NULL,
	items      JSONB NOT NULL,
	version    BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (scope, kind)
);`

// Postgres shares one store between several BFF instances.
type Postgres struct {
	sqlStore
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects with dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := pg.Connect(ctx, dsn, pg.LightweightConnectionConfig())
	if err != nil {
		return nil, err
	}
	store, err := NewPostgres(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(ctx context.Context, db *sql.DB) (*Postgres, error) {
	err := pg.WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, postgresSchema)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("init pending store schema: %w", err)
	}
	logger.Log.Debug("pending store opened", "component", "pending_store", "driver", "postgres")
	return &Postgres{sqlStore{
		db:        db,
		placehold: dollarPlaceholders,
		retryable: pg.IsSerializationFailure,
		name:      "postgres",
	}}, nil
}
