// Package lock gates cycle execution so only one process in a fleet polls
// the source at a time.
package lock

import "context"

// Lock is a time-limited, renewable mutual-exclusion lease. TryAcquire and
// Renew never block beyond one round trip; a crashed holder's lease expires
// on its own and another process takes over.
type Lock interface {
	TryAcquire(ctx context.Context) bool
	Renew(ctx context.Context) bool
	Release(ctx context.Context)
}

// Noop satisfies Lock for single-node deployments.
type Noop struct{}

// TryAcquire always succeeds.
func (Noop) TryAcquire(context.Context) bool { return true }

// Renew always succeeds.
func (Noop) Renew(context.Context) bool { return true }

// Release does nothing.
func (Noop) Release(context.Context) {}
