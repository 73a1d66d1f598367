package pending

import (
	"context"
	"fmt"

	"github.com/studcollab/looped/shared/config"
	"github.com/studcollab/looped/shared/storage/pg"
)

// Open builds the store selected by cfg.Public.Pending.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Public.Pending.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.Public.Pending.Path)
	case "postgres":
		return OpenPostgres(ctx, pg.DSN(cfg.Private.Pg))
	default:
		return nil, fmt.Errorf("unknown pending driver %q", cfg.Public.Pending.Driver)
	}
}
