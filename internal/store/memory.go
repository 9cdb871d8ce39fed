package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process Store used by tests and single-node development.
type Memory struct {
	mu         sync.Mutex
	data       map[string]memEntry
	SessionTTL time.Duration
	Now        func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]memEntry), SessionTTL: 12 * time.Hour}
}

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func memKey(scope Scope, key string) string { return scope.String() + ":" + key }

func (m *Memory) GetJSON(_ context.Context, scope Scope, key string, dst any) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey(scope, key)
	e, ok := m.data[k]
	if !ok {
		return false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.data, k)
		return false, nil
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		return false, err
	}
	if scope == Session {
		e.expiresAt = m.now().Add(m.SessionTTL)
		m.data[k] = e
	}
	return true, nil
}

func (m *Memory) SetJSON(_ context.Context, scope Scope, key string, v any) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e := memEntry{data: data}
	if scope == Session && m.SessionTTL > 0 {
		e.expiresAt = m.now().Add(m.SessionTTL)
	}
	m.mu.Lock()
	m.data[memKey(scope, key)] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, scope Scope, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, memKey(scope, k))
	}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }
