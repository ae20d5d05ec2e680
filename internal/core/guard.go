package core

import (
	"context"
	"fmt"
	"time"
)

// WriteGuard decides whether mutations are currently allowed. Every mutating
// entry point asks it before touching the database.
type WriteGuard interface {
	// CheckWritable returns nil when writes are allowed and an error wrapping
	// ErrLimitReached otherwise.
	CheckWritable(ctx context.Context) error
}

// AllowWrites is a WriteGuard that never refuses.
type AllowWrites struct{}

func (AllowWrites) CheckWritable(context.Context) error { return nil }

// LicenseGuard refuses writes when ReadOnly is set or when the license
// expiry date has passed. A zero ExpiresAt means no expiry.
type LicenseGuard struct {
	ReadOnly  bool
	ExpiresAt time.Time
	Now       func() time.Time
}

func (g LicenseGuard) CheckWritable(ctx context.Context) error {
	if g.ReadOnly {
		return fmt.Errorf("application is in read-only mode: %w", ErrLimitReached)
	}
	if g.ExpiresAt.IsZero() {
		return nil
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	if now().After(g.ExpiresAt) {
		return fmt.Errorf("license expired on %s: %w", g.ExpiresAt.Format("2006-01-02"), ErrLimitReached)
	}
	return nil
}

// Locker serializes writers. Confirmation entry points hold the lock for the
// whole transaction so two confirmations never interleave.
type Locker interface {
	// Lock blocks until the named lock is held or ctx is done. Work done under
	// the lock runs on the returned context, which is cancelled with cause
	// ErrLockLost if the lock is lost while held. unlock releases the lock and
	// cancels the context.
	Lock(ctx context.Context, name string) (held context.Context, unlock func(), err error)
}
