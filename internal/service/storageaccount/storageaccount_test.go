package storageaccount

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/plan"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
)

type fakeStore struct {
	users        map[string]UserState
	exists       map[string]bool
	casAttempts  int
	failCASTimes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]UserState{}, exists: map[string]bool{}}
}

func (f *fakeStore) LoadUser(ctx context.Context, userID string) (UserState, bool, error) {
	s, ok := f.exists[userID]
	return f.users[userID], ok && s, nil
}

func (f *fakeStore) BootstrapUser(ctx context.Context, userID string, p plan.Plan) (bool, error) {
	if f.exists[userID] {
		return false, nil
	}

	f.exists[userID] = true
	f.users[userID] = UserState{Plan: p}

	return true, nil
}

func (f *fakeStore) CAS(ctx context.Context, userID string, newUsage, expectedVersion int64) (bool, error) {
	f.casAttempts++

	cur := f.users[userID]
	if cur.StorageVersion != expectedVersion {
		return false, nil
	}

	if f.casAttempts <= f.failCASTimes {
		return false, nil
	}

	cur.StorageUsage = newUsage
	cur.StorageVersion++
	f.users[userID] = cur

	return true, nil
}

func TestReserveBootstrapsMissingUser(t *testing.T) {
	store := newFakeStore()
	a := New(store)

	state, err := a.Reserve(context.Background(), "u1", 1000)
	require.NoError(t, err)
	require.Equal(t, int64(1000), state.StorageUsage)
	require.Equal(t, int64(1), state.StorageVersion)
}

func TestReserveRejectsOverPlanLimit(t *testing.T) {
	store := newFakeStore()
	store.exists["u1"] = true
	store.users["u1"] = UserState{Plan: plan.Free, StorageUsage: 0, StorageVersion: 0}

	a := New(store)

	_, err := a.Reserve(context.Background(), "u1", plan.LimitsFor(plan.Free).MaxStorageBytes+1)
	require.Error(t, err)
	require.IsType(t, apperr.QuotaExceededError{}, err)
}

func TestReserveNeverGoesNegative(t *testing.T) {
	store := newFakeStore()
	store.exists["u1"] = true
	store.users["u1"] = UserState{Plan: plan.Free, StorageUsage: 100, StorageVersion: 0}

	a := New(store)

	state, err := a.Reserve(context.Background(), "u1", -1000)
	require.NoError(t, err)
	require.Equal(t, int64(0), state.StorageUsage)
}

func TestReserveRetriesOnCASConflict(t *testing.T) {
	store := newFakeStore()
	store.exists["u1"] = true
	store.users["u1"] = UserState{Plan: plan.Free, StorageUsage: 0, StorageVersion: 0}
	store.failCASTimes = 2

	a := New(store)

	state, err := a.Reserve(context.Background(), "u1", 500)
	require.NoError(t, err)
	require.Equal(t, int64(500), state.StorageUsage)
}

func TestReserveFailsAfterTooManyConflicts(t *testing.T) {
	store := newFakeStore()
	store.exists["u1"] = true
	store.users["u1"] = UserState{Plan: plan.Free, StorageUsage: 0, StorageVersion: 0}
	store.failCASTimes = 1000

	a := New(store)

	_, err := a.Reserve(context.Background(), "u1", 500)
	require.Error(t, err)
	require.IsType(t, apperr.ConflictError{}, err)
}
