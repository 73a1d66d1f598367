package pending

import (
	"context"
	"sync"

	"github.com/studcollab/looped/shared/domain"
)

type listKey struct {
	scope Scope
	kind  domain.PendingKind
}

// Memory keeps lists in process. Update runs the callback under the lock,
// so it never conflicts.
type Memory struct {
	mu    sync.Mutex
	lists map[listKey][]domain.PendingItem
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{lists: make(map[listKey][]domain.PendingItem)}
}

func (m *Memory) List(ctx context.Context, scope Scope, kind domain.PendingKind) ([]domain.PendingItem, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.lists[listKey{scope, kind}]), nil
}

func (m *Memory) Update(ctx context.Context, scope Scope, kind domain.PendingKind, fn UpdateFunc) ([]domain.PendingItem, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := listKey{scope, kind}
	next, err := fn(clone(m.lists[key]))
	if err != nil {
		return nil, err
	}
	if len(next) == 0 {
		delete(m.lists, key)
		return nil, nil
	}
	m.lists[key] = clone(next)
	return clone(next), nil
}

func (m *Memory) Clear(ctx context.Context, scope Scope, kind domain.PendingKind) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, listKey{scope, kind})
	return nil
}

func (m *Memory) Close() error { return nil }
