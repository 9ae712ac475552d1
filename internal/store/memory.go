// internal/store/memory.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is the in-process Store used by tests and solo play. It
// mirrors the replicated store's delivery contract: subscribers get the
// full value at their path on every relevant change.
type MemoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	subs    map[int]*memorySub
	nextSub int
}

type memorySub struct {
	path string
	fn   func(value []byte, ok bool)
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
		subs: make(map[int]*memorySub),
	}
}

func (m *MemoryStore) Read(_ context.Context, path string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[path]
	return v, ok, nil
}

func (m *MemoryStore) Write(_ context.Context, path string, value []byte) error {
	m.mu.Lock()
	m.data[path] = value
	pending := m.pendingLocked(path)
	m.mu.Unlock()
	deliver(pending)
	return nil
}

func (m *MemoryStore) Merge(_ context.Context, path string, fields map[string]any) error {
	m.mu.Lock()
	obj := map[string]json.RawMessage{}
	if existing, ok := m.data[path]; ok {
		if err := json.Unmarshal(existing, &obj); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("merge into non-object at %s: %w", path, err)
		}
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("marshal merge field %s: %w", k, err)
		}
		obj[k] = raw
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.data[path] = merged
	pending := m.pendingLocked(path)
	m.mu.Unlock()
	deliver(pending)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	delete(m.data, path)
	prefix := path + "/"
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	pending := m.pendingLocked(path)
	m.mu.Unlock()
	deliver(pending)
	return nil
}

func (m *MemoryStore) CreateChild(_ context.Context, _ string) (string, error) {
	return uuid.NewString(), nil
}

func (m *MemoryStore) ReadChildren(_ context.Context, path string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := path + "/"
	children := make(map[string][]byte)
	for k, v := range m.data {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if strings.Contains(rest, "/") {
			continue
		}
		children[rest] = v
	}
	return children, nil
}

func (m *MemoryStore) Subscribe(_ context.Context, path string, onValue func(value []byte, ok bool)) (CancelFunc, error) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = &memorySub{path: path, fn: onValue}
	v, ok := m.data[path]
	m.mu.Unlock()

	// initial delivery with the current value
	onValue(v, ok)

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}, nil
}

func (m *MemoryStore) Increment(_ context.Context, path, field string, delta int64) (int64, error) {
	m.mu.Lock()
	obj := map[string]json.RawMessage{}
	if existing, ok := m.data[path]; ok {
		if err := json.Unmarshal(existing, &obj); err != nil {
			m.mu.Unlock()
			return 0, fmt.Errorf("increment into non-object at %s: %w", path, err)
		}
	}
	var current int64
	if raw, ok := obj[field]; ok {
		if err := json.Unmarshal(raw, &current); err != nil {
			m.mu.Unlock()
			return 0, fmt.Errorf("increment non-integer field %s at %s: %w", field, path, err)
		}
	}
	current += delta
	raw, _ := json.Marshal(current)
	obj[field] = raw
	merged, err := json.Marshal(obj)
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.data[path] = merged
	pending := m.pendingLocked(path)
	m.mu.Unlock()
	deliver(pending)
	return current, nil
}

func (m *MemoryStore) SetIfAbsent(_ context.Context, path string, value []byte) (bool, error) {
	m.mu.Lock()
	if _, exists := m.data[path]; exists {
		m.mu.Unlock()
		return false, nil
	}
	m.data[path] = value
	pending := m.pendingLocked(path)
	m.mu.Unlock()
	deliver(pending)
	return true, nil
}

type delivery struct {
	fn    func(value []byte, ok bool)
	value []byte
	ok    bool
}

// pendingLocked gathers deliveries for every subscription whose path is
// the changed path or an ancestor of it. Assumes lock is held; deliveries
// run after the lock is released so callbacks can re-enter the store.
func (m *MemoryStore) pendingLocked(changed string) []delivery {
	var out []delivery
	for _, sub := range m.subs {
		if sub.path != changed && !strings.HasPrefix(changed, sub.path+"/") {
			continue
		}
		v, ok := m.data[sub.path]
		out = append(out, delivery{fn: sub.fn, value: v, ok: ok})
	}
	return out
}

func deliver(pending []delivery) {
	for _, d := range pending {
		d.fn(d.value, d.ok)
	}
}
