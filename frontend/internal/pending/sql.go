package pending

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/studcollab/looped/shared/domain"
	"github.com/studcollab/looped/shared/logger"
)

// Every lost swap means another writer committed, so the bound only has to
// exceed the number of writers expected to contend for one list.
const maxUpdateAttempts = 32

// sqlStore keeps one row per (scope, kind) holding the whole list as JSON.
// Writes are compare-and-swap on version. Rows are never deleted: an empty
// list is stored as [] and the version keeps growing, so a reader can never
// mistake a recreated row for the one it read.
type sqlStore struct {
	db        *sql.DB
	placehold func(q string) string
	retryable func(err error) bool
	name      string
}

func (s *sqlStore) q(query string) string {
	if s.placehold == nil {
		return query
	}
	return s.placehold(query)
}

// dollarPlaceholders rewrites ? to $1, $2... for postgres.
func dollarPlaceholders(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) read(ctx context.Context, scope Scope, kind domain.PendingKind) ([]domain.PendingItem, int64, error) {
	var (
		raw     string
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT items, version FROM pending_lists WHERE scope = ? AND kind = ?`),
		string(scope), string(kind)).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read pending list: %w", err)
	}
	var items []domain.PendingItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		// A corrupt list must not block new writes: start over and say so.
		logger.Log.Error("corrupt pending list, resetting", "component", "pending_store", "scope", scope.String(), "kind", kind, "error", err)
		return nil, version, nil
	}
	if len(items) == 0 {
		items = nil
	}
	return items, version, nil
}

func (s *sqlStore) List(ctx context.Context, scope Scope, kind domain.PendingKind) ([]domain.PendingItem, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	items, _, err := s.read(ctx, scope, kind)
	return items, err
}

func (s *sqlStore) Update(ctx context.Context, scope Scope, kind domain.PendingKind, fn UpdateFunc) ([]domain.PendingItem, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		current, version, err := s.read(ctx, scope, kind)
		if err != nil {
			return nil, err
		}
		next, err := fn(clone(current))
		if err != nil {
			return nil, err
		}
		ok, err := s.swap(ctx, scope, kind, version, next)
		if err != nil {
			if s.retryable != nil && s.retryable(err) {
				continue
			}
			return nil, err
		}
		if ok {
			if len(next) == 0 {
				return nil, nil
			}
			return clone(next), nil
		}
		logger.Log.Debug("pending list changed underneath, retrying", "component", "pending_store", "store", s.name, "scope", scope.String(), "kind", kind, "attempt", attempt)
		if err := sleepCtx(ctx, backoff(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, ErrConflict
}

func (s *sqlStore) swap(ctx context.Context, scope Scope, kind domain.PendingKind, version int64, next []domain.PendingItem) (bool, error) {
	if next == nil {
		next = []domain.PendingItem{}
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("encode pending list: %w", err)
	}
	now := time.Now().UTC()

	var res sql.Result
	if version == 0 {
		if len(next) == 0 {
			return true, nil
		}
		res, err = s.db.ExecContext(ctx,
			s.q(`INSERT INTO pending_lists (scope, kind, items, version, updated_at) VALUES (?, ?, ?, 1, ?)
			ON CONFLICT (scope, kind) DO NOTHING`),
			string(scope), string(kind), string(raw), now)
	} else {
		res, err = s.db.ExecContext(ctx,
			s.q(`UPDATE pending_lists SET items = ?, version = version + 1, updated_at = ?
			WHERE scope = ? AND kind = ? AND version = ?`),
			string(raw), now, string(scope), string(kind), version)
	}
	if err != nil {
		return false, fmt.Errorf("write pending list: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write pending list: %w", err)
	}
	return n == 1, nil
}

func (s *sqlStore) Clear(ctx context.Context, scope Scope, kind domain.PendingKind) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		s.q(`UPDATE pending_lists SET items = '[]', version = version + 1, updated_at = ? WHERE scope = ? AND kind = ?`),
		time.Now().UTC(), string(scope), string(kind))
	if err != nil {
		return fmt.Errorf("clear pending list: %w", err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * 2 * time.Millisecond
	if d > 50*time.Millisecond {
		d = 50 * time.Millisecond
	}
	return d/2 + rand.N(d/2+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
