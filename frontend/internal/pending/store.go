// Package pending persists creations the backend has not confirmed yet,
// per user scope and kind.
//
// Update is the only mutation primitive. It is an atomic read-modify-write
// of one (scope, kind) list: the callback gets the current list and returns
// the complete new one. Callbacks may run more than once when a concurrent
// writer wins, so they must not have side effects.
package pending

import (
	"context"
	"errors"
	"fmt"

	"github.com/studcollab/looped/shared/crypto"
	"github.com/studcollab/looped/shared/domain"
)

var (
	// ErrNoScope is returned for anonymous users; callers skip pending work.
	ErrNoScope = errors.New("pending: no user scope")
	// ErrConflict means Update kept losing the compare-and-swap.
	ErrConflict = errors.New("pending: concurrent update conflict")
)

// Scope namespaces stored lists per user.
type Scope string

// ScopeFor derives the scope from the user's email.
func ScopeFor(user domain.User) (Scope, error) {
	key, err := crypto.ScopeKey(user.Email)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoScope, err)
	}
	return Scope(key), nil
}

func (s Scope) String() string {
	return crypto.ShortScope(string(s))
}

type UpdateFunc func(current []domain.PendingItem) ([]domain.PendingItem, error)

type Store interface {
	List(ctx context.Context, scope Scope, kind domain.PendingKind) ([]domain.PendingItem, error)
	Update(ctx context.Context, scope Scope, kind domain.PendingKind, fn UpdateFunc) ([]domain.PendingItem, error)
	Clear(ctx context.Context, scope Scope, kind domain.PendingKind) error
	Close() error
}

// Add prepends item so the newest pending creation is listed first. A
// colliding local id is bumped until it is unique within the list.
func Add(ctx context.Context, s Store, scope Scope, item domain.PendingItem) (domain.PendingItem, error) {
	var added domain.PendingItem
	_, err := s.Update(ctx, scope, item.Kind, func(current []domain.PendingItem) ([]domain.PendingItem, error) {
		added = item
		for n := 1; containsId(current, added.LocalId); n++ {
			added.LocalId = fmt.Sprintf("%s-%d", item.LocalId, n)
		}
		return append([]domain.PendingItem{added}, current...), nil
	})
	if err != nil {
		return domain.PendingItem{}, err
	}
	return added, nil
}

// Remove drops the given local ids and reports how many were present.
func Remove(ctx context.Context, s Store, scope Scope, kind domain.PendingKind, localIds ...domain.LocalId) (int, error) {
	if len(localIds) == 0 {
		return 0, nil
	}
	drop := make(map[domain.LocalId]struct{}, len(localIds))
	for _, id := range localIds {
		drop[id] = struct{}{}
	}
	var removed int
	_, err := s.Update(ctx, scope, kind, func(current []domain.PendingItem) ([]domain.PendingItem, error) {
		removed = 0
		out := make([]domain.PendingItem, 0, len(current))
		for _, it := range current {
			if _, ok := drop[it.LocalId]; ok {
				removed++
				continue
			}
			out = append(out, it)
		}
		return out, nil
	})
	return removed, err
}

// Find returns the item with localId, searching every kind.
func Find(ctx context.Context, s Store, scope Scope, localId domain.LocalId) (domain.PendingItem, bool, error) {
	for _, kind := range domain.PendingKinds() {
		items, err := s.List(ctx, scope, kind)
		if err != nil {
			return domain.PendingItem{}, false, err
		}
		for _, it := range items {
			if it.LocalId == localId {
				return it, true, nil
			}
		}
	}
	return domain.PendingItem{}, false, nil
}

func containsId(items []domain.PendingItem, id domain.LocalId) bool {
	for _, it := range items {
		if it.LocalId == id {
			return true
		}
	}
	return false
}

func clone(items []domain.PendingItem) []domain.PendingItem {
	if items == nil {
		return nil
	}
	return append(make([]domain.PendingItem, 0, len(items)), items...)
}

func checkKind(kind domain.PendingKind) error {
	if !kind.Valid() {
		return fmt.Errorf("pending: unknown kind %q", kind)
	}
	return nil
}
