package ratelimitshard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

func TestCheckAllowsThenRejectsOverLimit(t *testing.T) {
	s := New(nil, nil, &mlog.GoLogger{Level: mlog.InfoLevel})

	res, err := s.Check(context.Background(), "u1:example.com", 2, 60, 1, 0)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = s.Check(context.Background(), "u1:example.com", 2, 60, 1, 0)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = s.Check(context.Background(), "u1:example.com", 2, 60, 1, 0)
	require.NoError(t, err)
	require.False(t, res.Allowed)
}

func TestCheckKeysAreIndependent(t *testing.T) {
	s := New(nil, nil, &mlog.GoLogger{Level: mlog.InfoLevel})

	res, _ := s.Check(context.Background(), "u1:a.com", 1, 60, 1, 0)
	require.True(t, res.Allowed)

	res, _ = s.Check(context.Background(), "u1:b.com", 1, 60, 1, 0)
	require.True(t, res.Allowed, "distinct keys must not share a window")
}

type fakeCache struct {
	counts map[string]int64
}

func newFakeCache() *fakeCache { return &fakeCache{counts: map[string]int64{}} }

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) { return "", nil }
func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}
func (f *fakeCache) Incr(ctx context.Context, key string) (int64, error) {
	f.counts[key]++
	return f.counts[key], nil
}
func (f *fakeCache) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }

func TestCheckFallsBackToCacheWhenRegistryAbsent(t *testing.T) {
	cache := newFakeCache()
	s := New(nil, cache, &mlog.GoLogger{Level: mlog.InfoLevel})

	res, err := s.Check(context.Background(), "u1:example.com", 2, 60, 1, 0)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = s.Check(context.Background(), "u1:example.com", 2, 60, 1, 0)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = s.Check(context.Background(), "u1:example.com", 2, 60, 1, 0)
	require.NoError(t, err)
	require.False(t, res.Allowed, "third check over a limit of 2 must be rejected via the kv fallback")
}
