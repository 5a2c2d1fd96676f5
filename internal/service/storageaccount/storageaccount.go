// Package storageaccount implements the Storage Accountant:
// advancing a user's storage_usage_bytes monotonically under concurrency
// using the user row's storage_version as a CAS token via the conditional
// `UPDATE ... WHERE version = ?` idiom.
package storageaccount

import (
	"context"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/plan"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
)

// maxCASRetries bounds the read-revalidate-retry loop.
const maxCASRetries = 3

// UserState is the CAS-relevant slice of a user row.
type UserState struct {
	Plan           plan.Plan
	StorageUsage   int64
	StorageVersion int64
}

// Store is the persistence contract the Accountant drives.
type Store interface {
	// LoadUser reads (plan, usage, version) in one statement. Returns
	// (UserState{}, false, nil) when the user row does not exist yet.
	LoadUser(ctx context.Context, userID string) (UserState, bool, error)
	// BootstrapUser inserts a zeroed user row; a unique-conflict race is
	// reported back as ok=false so the caller re-reads and retries.
	BootstrapUser(ctx context.Context, userID string, p plan.Plan) (ok bool, err error)
	// CAS sets usage = newUsage, version += 1 iff the stored version still
	// matches expectedVersion. Returns applied=false on a version mismatch.
	CAS(ctx context.Context, userID string, newUsage, expectedVersion int64) (applied bool, err error)
}

// Accountant drives the reserve/release CAS protocol.
type Accountant struct {
	store Store
}

// New builds an Accountant over store.
func New(store Store) *Accountant {
	return &Accountant{store: store}
}

// Reserve advances storage_usage_bytes by delta (positive on publish,
// negative on delete), enforcing the plan's storage cap on increases.
func (a *Accountant) Reserve(ctx context.Context, userID string, delta int64) (UserState, error) {
	for attempt := 0; attempt <= maxCASRetries; attempt++ {
		state, ok, err := a.store.LoadUser(ctx, userID)
		if err != nil {
			return UserState{}, err
		}

		if !ok {
			bootstrapped, err := a.store.BootstrapUser(ctx, userID, plan.Free)
			if err != nil {
				return UserState{}, err
			}

			if !bootstrapped {
				continue // another writer won the race; re-read and retry
			}

			state = UserState{Plan: plan.Free}
		}

		newUsage := state.StorageUsage + delta
		if newUsage < 0 {
			newUsage = 0
		}

		if delta > 0 {
			limits := plan.LimitsFor(state.Plan)
			if newUsage > limits.MaxStorageBytes {
				return UserState{}, apperr.QuotaExceededError{
					Code:    "STORAGE_LIMIT",
					Title:   "Storage limit exceeded",
					Message: "this upload would exceed the plan's storage limit",
					Details: map[string]any{
						"plan":            string(state.Plan),
						"maxStorageBytes": limits.MaxStorageBytes,
						"currentUsage":    state.StorageUsage,
						"requestedDelta":  delta,
					},
				}
			}
		}

		applied, err := a.store.CAS(ctx, userID, newUsage, state.StorageVersion)
		if err != nil {
			return UserState{}, err
		}

		if applied {
			state.StorageUsage = newUsage
			state.StorageVersion++

			return state, nil
		}
		// version mismatch: another writer updated concurrently; retry.
	}

	return UserState{}, apperr.ConflictError{
		EntityType: "user",
		Code:       "CONCURRENT-UPLOAD",
		Title:      "Concurrent upload",
		Message:    "storage accounting lost the CAS race too many times; retry the upload",
	}
}
