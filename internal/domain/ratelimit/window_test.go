package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckAllowsWithinLimit(t *testing.T) {
	var w *Window

	res, next := Check(w, 100, 60, 1, 1000)
	require.True(t, res.Allowed)
	require.Equal(t, int64(99), res.Remaining)
	require.Equal(t, int64(61000), next.ResetMs)
}

func TestCheckRejectsOverLimit(t *testing.T) {
	w := &Window{Count: 100, ResetMs: 61000}

	res, _ := Check(w, 100, 60, 1, 2000)
	require.False(t, res.Allowed)
	require.Equal(t, int64(0), res.Remaining)
}

func TestCheckRollsWindowAfterReset(t *testing.T) {
	w := &Window{Count: 100, ResetMs: 61000}

	res, next := Check(w, 100, 60, 1, 61000)
	require.True(t, res.Allowed)
	require.Equal(t, int64(1), next.Count)
}

func TestCheckCostLargerThanOne(t *testing.T) {
	var w *Window

	res, next := Check(w, 10, 60, 5, 0)
	require.True(t, res.Allowed)
	require.Equal(t, int64(5), res.Remaining)
	require.Equal(t, int64(5), next.Count)

	res2, _ := Check(&next, 10, 60, 6, 0)
	require.False(t, res2.Allowed, "cost pushing total past limit must reject even if partial room remains")
}
