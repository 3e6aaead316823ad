// Package locks provides per-vendor mutual exclusion for payout processing.
// At most one payout may run for a vendor at a time; a second caller gets an
// immediate refusal instead of queueing behind the first.
package locks

import (
	"sync"

	"github.com/google/uuid"
)

// VendorLockTable tracks which vendors currently have a payout in flight.
// Instances are injected, never shared through a package-level variable, so
// tests can run isolated tables.
type VendorLockTable struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

// NewVendorLockTable creates an empty lock table
func NewVendorLockTable() *VendorLockTable {
	return &VendorLockTable{held: make(map[uuid.UUID]struct{})}
}

// TryAcquire attempts to take the vendor's lock without blocking. It returns
// false when a payout is already in flight for the vendor.
func (t *VendorLockTable) TryAcquire(vendorAccountID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, inFlight := t.held[vendorAccountID]; inFlight {
		return false
	}
	t.held[vendorAccountID] = struct{}{}
	return true
}

// Release frees the vendor's lock. Releasing an unheld lock is a no-op.
func (t *VendorLockTable) Release(vendorAccountID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.held, vendorAccountID)
}

// Held reports whether the vendor currently has a payout in flight
func (t *VendorLockTable) Held(vendorAccountID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, inFlight := t.held[vendorAccountID]
	return inFlight
}
