// Package session persists per-customer checkout state.
//
// A Store holds raw string values keyed by (session id, key). CheckoutSession
// and PlatformSession are thin, request scoped views over a Store; they are
// always passed explicitly and never shared between customers.
package session

import (
	"errors"
	"time"
)

// ErrClosed is returned by stores used after Close
var ErrClosed = errors.New("session store is closed")

// Store is a concurrent-safe key/value store partitioned by session id
type Store interface {
	// Get returns the value and whether it was present
	Get(sessionID, key string) (string, bool, error)
	Set(sessionID, key, value string) error
	// Delete removes keys; missing keys are ignored
	Delete(sessionID string, keys ...string) error
	// Replace writes values and removes keys as one change: either all of it
	// is applied or none of it is
	Replace(sessionID string, values map[string]string, remove []string) error
	// PurgeIdle drops sessions not written for longer than olderThan and
	// returns how many sessions were removed
	PurgeIdle(olderThan time.Duration) (int64, error)
	Close() error
}
