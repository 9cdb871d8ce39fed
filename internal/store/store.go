// Package store persists per-client JSON documents in two scopes: a durable
// scope that survives sessions and a session scope that expires when idle.
package store

import (
	"context"
	"errors"
)

// Scope selects the lifetime of a stored value.
type Scope int

const (
	// Durable values live until removed (or the durable TTL when one is set).
	Durable Scope = iota
	// Session values expire after the session TTL of inactivity.
	Session
)

func (s Scope) String() string {
	if s == Session {
		return "session"
	}
	return "durable"
}

// ErrEmptyKey is returned for blank keys.
var ErrEmptyKey = errors.New("store: empty key")

// Store reads and writes JSON documents.
type Store interface {
	// GetJSON decodes the value into dst and reports whether the key existed.
	GetJSON(ctx context.Context, scope Scope, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, scope Scope, key string, v any) error
	Delete(ctx context.Context, scope Scope, keys ...string) error
	Ping(ctx context.Context) error
}
