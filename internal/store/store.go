// Package store persists Session Identity Records in a key-value store keyed
// by session identifier. Records are read on login (when resuming) and
// written once per completed turn.
package store

import (
	"context"
	"errors"
	"time"
)

// Record is the persisted identity record for one session key. It is never
// mutated concurrently within a session; one device holds one active session.
type Record struct {
	SessionKey string    `json:"session_key"`
	WorkerID   string    `json:"worker_id"`
	Visits     int       `json:"visits"`
	LastTriage string    `json:"last_triage"`
	LastVisit  time.Time `json:"last_visit"`
}

// Store is the keyed persistence interface.
type Store interface {
	// Get retrieves a record by session key. Returns nil if the record is not
	// found (not an error).
	Get(ctx context.Context, key string) (*Record, error)

	// Upsert creates or replaces the record under its session key.
	Upsert(ctx context.Context, rec *Record) error

	// Delete removes a record by session key.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// Common errors for store operations.
var (
	ErrInvalidConfig = errors.New("store: invalid configuration")
	ErrMissingKey    = errors.New("store: record has no session key")
)
