// Package locker provides distributed locks that keep a provider sync or a
// scheduled run from executing on two instances at once.
package locker

import (
	"context"
	"errors"
	"time"
)

// ErrNotHeld is returned when a lock is released or extended after it expired
// or was taken over by another holder.
var ErrNotHeld = errors.New("lock not held")

// Lock is a held lock. Each Acquire returns its own handle, so two holders in
// one process never release each other's lock.
type Lock interface {
	// Key returns the lock key.
	Key() string

	// Extend resets the expiry to the TTL given at acquisition.
	Extend(ctx context.Context) error

	// Release gives the lock up. Releasing an expired lock returns ErrNotHeld.
	Release(ctx context.Context) error
}

// DistributedLocker hands out locks shared across service instances.
// Implementations must be safe for concurrent use.
//
// Typical usage:
//
//	lock, err := locker.Acquire(ctx, "sync:provider:discogs", 10*time.Minute)
//	if err != nil {
//	    return err
//	}
//	if lock == nil {
//	    // Another holder has it
//	    return nil
//	}
//	defer lock.Release(ctx)
type DistributedLocker interface {
	// Acquire tries once to take the lock. It returns a nil Lock and no error
	// when somebody else holds it. The lock expires after ttl unless extended,
	// so ttl doubles as a cooldown when the holder never releases.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}
