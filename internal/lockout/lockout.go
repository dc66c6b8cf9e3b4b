// Package lockout tracks failed login attempts per identifier and decides
// when an identifier is locked out.
//
// A key moves Clean -> Warning -> Locked as failures accumulate. A successful
// login resets it to Clean. A lock is anchored at the failure that engaged it
// and expires LockoutDuration later; expiry is applied lazily when the key is
// next read or written. A Policy with an IdleTTL also forgets Warning records
// that have seen no failure for that long.
package lockout

import (
	"context"
	"time"
)

const (
	// MaxAttempts is the number of consecutive failures that engages a lock
	MaxAttempts = 5

	// LockoutDuration is how long a lock lasts from the failure that engaged it
	LockoutDuration = 15 * time.Minute
)

// Record is the attempt state of one identifier
type Record struct {
	FailureCount int
	LockedSince  time.Time
	LastFailure  time.Time
}

// Locked reports whether a lock has been engaged. Callers get records from a
// Store, which already drops expired locks.
func (r Record) Locked() bool {
	return !r.LockedSince.IsZero()
}

// Expired reports whether the lock window has fully elapsed at now
func (r Record) Expired(now time.Time, window time.Duration) bool {
	return r.Locked() && !now.Before(r.LockedSince.Add(window))
}

// Remaining returns the time left on the lock, or 0 when not locked
func (r Record) Remaining(now time.Time, window time.Duration) time.Duration {
	if !r.Locked() {
		return 0
	}
	left := r.LockedSince.Add(window).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// MinutesRemaining rounds the remaining lock time up to whole minutes, with a floor of 1
func (r Record) MinutesRemaining(now time.Time, window time.Duration) int {
	left := r.Remaining(now, window)
	minutes := int((left + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Policy holds the thresholds a store enforces
type Policy struct {
	MaxAttempts int
	Window      time.Duration

	// IdleTTL drops an unlocked record once this long has passed since its
	// last failure. Zero keeps Warning records until a successful login.
	IdleTTL time.Duration
}

// Stale reports whether rec should read as Clean at now: either its lock has
// expired or it is an idle Warning record.
func (p Policy) Stale(rec Record, now time.Time) bool {
	if rec.Locked() {
		return rec.Expired(now, p.Window)
	}
	return p.IdleTTL > 0 && !rec.LastFailure.IsZero() && !now.Before(rec.LastFailure.Add(p.IdleTTL))
}

// DefaultPolicy returns the fixed production policy
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: MaxAttempts,
		Window:      LockoutDuration,
	}
}

// Store holds attempt records under one Policy. Implementations must make RecordFailure atomic
// per key; operations on different keys must not serialize on a global lock.
type Store interface {
	// Status returns the current record for key. A stale record reads as a
	// zero Record and is removed in the same step, so a failure recorded
	// concurrently is never lost.
	Status(ctx context.Context, key string, now time.Time) (Record, error)

	// RecordFailure counts one failure for key. newlyLocked is true only for
	// the failure that engaged the lock. A failure on an already locked key
	// increments the count but leaves LockedSince untouched.
	RecordFailure(ctx context.Context, key string, now time.Time) (rec Record, newlyLocked bool, err error)

	// Reset clears all state for key
	Reset(ctx context.Context, key string) error

	// Policy returns the thresholds this store enforces
	Policy() Policy
}
