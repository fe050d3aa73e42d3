package rbac

import (
	"fmt"
	"sync"
)

// InflightGuard tracks mutations in flight per entity id. A second mutation
// against the same entity is rejected instead of silently racing the first.
type InflightGuard struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

// NewInflightGuard constructs an empty guard.
func NewInflightGuard() *InflightGuard {
	return &InflightGuard{pending: make(map[string]struct{})}
}

// Begin marks the entity as having a mutation in flight. It returns a release
// function, or ErrConflict when a mutation for the same entity is pending.
func (g *InflightGuard) Begin(kind string, id int64) (func(), error) {
	if g == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("%s:%d", kind, id)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.pending[key]; busy {
		return nil, fmt.Errorf("%w: another change to this %s is still being saved", ErrConflict, kind)
	}
	g.pending[key] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.pending, key)
		g.mu.Unlock()
	}, nil
}
