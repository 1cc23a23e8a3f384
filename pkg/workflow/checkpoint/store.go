// Package checkpoint provides persistent checkpoint storage for
// suspend/resume across process boundaries.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists the latest checkpoint per thread.
// Implementations must be safe for concurrent use.
//
// A thread holds exactly one logical checkpoint: Save replaces any
// previous checkpoint for the thread.
type Store interface {
	// Save stores the checkpoint for a thread, replacing any existing one.
	Save(threadID string, data []byte) error

	// Load retrieves the latest checkpoint for a thread.
	// Returns ErrNotFound if no checkpoint exists.
	Load(threadID string) ([]byte, error)

	// Delete removes the checkpoint for a thread.
	// Returns nil if no checkpoint exists.
	Delete(threadID string) error

	// PurgeBefore removes checkpoints last written before the cutoff and
	// returns how many were removed. Retention is an operator decision;
	// nothing in the engine calls this automatically.
	PurgeBefore(cutoff time.Time) (int, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
