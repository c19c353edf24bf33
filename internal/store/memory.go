package store

import (
	"context"
	"sync"
)

// Memory is an in-memory RemoteStore backed by a nested map tree. Reads hand
// out deep copies, so snapshots held by readers never alias live state.
// Subscribers are notified synchronously after each committed mutation.
type Memory struct {
	mu   sync.Mutex
	root map[string]any

	subs    map[int]*memSub
	nextSub int

	// conflicts[path] forces that many ErrConflict results from Transaction
	// before one succeeds. Exercises the caller's retry loop in tests.
	conflicts map[string]int
}

type memSub struct {
	segments []string
	fn       func(value any)
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		root:      make(map[string]any),
		subs:      make(map[int]*memSub),
		conflicts: make(map[string]int),
	}
}

var _ RemoteStore = (*Memory)(nil)

// Get returns a deep copy of the subtree at path.
func (m *Memory) Get(_ context.Context, path string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return deepCopy(m.getLocked(splitPath(path))), nil
}

// Set replaces the subtree at path and notifies subscribers.
func (m *Memory) Set(_ context.Context, path string, value any) error {
	m.mu.Lock()
	m.setLocked(splitPath(path), deepCopy(value))
	notify := m.pendingNotifications(splitPath(path))
	m.mu.Unlock()

	deliver(notify)
	return nil
}

// Update applies all fields under a single lock, so partial writes are never
// observable. Field keys may address nested children.
func (m *Memory) Update(_ context.Context, path string, fields map[string]any) error {
	base := splitPath(path)

	m.mu.Lock()
	for key, value := range fields {
		target := append(append([]string{}, base...), splitPath(key)...)
		m.setLocked(target, deepCopy(value))
	}
	notify := m.pendingNotifications(base)
	m.mu.Unlock()

	deliver(notify)
	return nil
}

// Remove deletes the subtree at path.
func (m *Memory) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	m.setLocked(splitPath(path), nil)
	notify := m.pendingNotifications(splitPath(path))
	m.mu.Unlock()

	deliver(notify)
	return nil
}

// Transaction runs fn against the current value and commits the result. The
// whole read-modify-write holds the store lock, so concurrent transactions on
// the same path serialize. Forced conflicts (ForceConflicts) surface the
// retry path that a real remote store exhibits under contention.
func (m *Memory) Transaction(_ context.Context, path string, fn UpdateFunc) (any, error) {
	m.mu.Lock()

	if m.conflicts[path] > 0 {
		m.conflicts[path]--
		m.mu.Unlock()
		return nil, ErrConflict
	}

	segments := splitPath(path)
	current := deepCopy(m.getLocked(segments))

	next, err := fn(current)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	m.setLocked(segments, deepCopy(next))
	notify := m.pendingNotifications(segments)
	m.mu.Unlock()

	deliver(notify)
	return next, nil
}

// Subscribe delivers the current value immediately, then again after every
// change that intersects path.
func (m *Memory) Subscribe(path string, fn func(value any)) (func(), error) {
	segments := splitPath(path)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = &memSub{segments: segments, fn: fn}
	initial := deepCopy(m.getLocked(segments))
	m.mu.Unlock()

	fn(initial)

	cancel := func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
	return cancel, nil
}

// ForceConflicts makes the next n transactions on path fail with ErrConflict.
func (m *Memory) ForceConflicts(path string, n int) {
	m.mu.Lock()
	m.conflicts[path] = n
	m.mu.Unlock()
}

func (m *Memory) getLocked(segments []string) any {
	var cur any = m.root
	for _, seg := range segments {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = node[seg]
		if !ok {
			return nil
		}
	}
	return cur
}

func (m *Memory) setLocked(segments []string, value any) {
	if len(segments) == 0 {
		if node, ok := value.(map[string]any); ok {
			m.root = node
		} else {
			m.root = make(map[string]any)
		}
		return
	}

	parent := m.root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := parent[seg].(map[string]any)
		if !ok {
			if value == nil {
				return
			}
			child = make(map[string]any)
			parent[seg] = child
		}
		parent = child
	}

	last := segments[len(segments)-1]
	if value == nil {
		delete(parent, last)
		return
	}
	parent[last] = value
}

type notification struct {
	fn    func(value any)
	value any
}

// pendingNotifications snapshots the values for every subscriber whose path
// intersects the changed path. Delivery happens after the lock is released so
// callbacks can call back into the store.
func (m *Memory) pendingNotifications(changed []string) []notification {
	var out []notification
	for _, sub := range m.subs {
		if isPrefix(sub.segments, changed) || isPrefix(changed, sub.segments) {
			out = append(out, notification{fn: sub.fn, value: deepCopy(m.getLocked(sub.segments))})
		}
	}
	return out
}

func deliver(notes []notification) {
	for _, n := range notes {
		n.fn(n.value)
	}
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}
