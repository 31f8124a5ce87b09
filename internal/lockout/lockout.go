// Package lockout governs failed-attempt counting and timed account locking.
//
// The state machine is evaluated in memory against the already-loaded
// identity row (Evaluate); transitions are persisted through a Recorder whose
// increments are atomic per row, so concurrent failed attempts never lose a
// count. Unlocking is lazy: a lock whose deadline has passed counts as
// Unlocked(0) at the read site, with no background sweep.
package lockout

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Defaults applied when Config fields are zero.
const (
	DefaultMaxAttempts = 5
	DefaultLockFor     = 30 * time.Minute
)

// Config holds the lockout thresholds.
type Config struct {
	MaxAttempts int           // failed attempts before locking
	LockFor     time.Duration // lock window length
}

// WithDefaults fills zero fields with the default thresholds.
func (c Config) WithDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.LockFor <= 0 {
		c.LockFor = DefaultLockFor
	}
	return c
}

// State is the evaluated lockout state of one identity at one instant.
type State struct {
	Locked   bool
	Until    time.Time // valid when Locked
	Attempts int       // failed attempts counted so far
}

// Evaluate derives the state from the identity's persisted lockout fields.
// A lock deadline in the past yields Unlocked(0) regardless of the stored
// counter (lazy unlock).
func Evaluate(attempts int, lockedUntil, now time.Time) State {
	if lockedUntil.After(now) {
		return State{Locked: true, Until: lockedUntil, Attempts: attempts}
	}
	if !lockedUntil.IsZero() && lockedUntil.Unix() > 0 {
		// lock expired; counter restarts from zero
		return State{Attempts: 0}
	}
	return State{Attempts: attempts}
}

// Recorder persists lockout transitions with per-row atomicity.
type Recorder interface {
	// Failure records a failed attempt and reports whether the account just
	// transitioned into Locked, along with the lock window length.
	Failure(ctx context.Context, tenantID string, id uuid.UUID) (bool, time.Duration, error)
	// Success resets the counter and lock after a successful authentication
	// and records the login timestamp.
	Success(ctx context.Context, tenantID string, id uuid.UUID) error
}
