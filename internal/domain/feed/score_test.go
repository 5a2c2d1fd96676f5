package feed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeForYouScoreDecaysWithAge(t *testing.T) {
	now := int64(1000000)
	stats := PostStats{Runs: 10, Likes: 5}

	fresh := ComputeForYouScore(now, now, stats, 0, false, "free", false)
	oneDayOld := ComputeForYouScore(now-86400, now, stats, 0, false, "free", false)

	require.Greater(t, fresh, oneDayOld)
	require.InDelta(t, fresh/2, oneDayOld, fresh*0.05, "one half-life should roughly halve the score")
}

func TestComputeForYouScoreRewardsEngagement(t *testing.T) {
	now := int64(1000)

	low := ComputeForYouScore(now, now, PostStats{}, 0, false, "free", false)
	high := ComputeForYouScore(now, now, PostStats{Runs: 100, Likes: 50, Comments: 10, Remixes: 5}, 0, false, "free", false)

	require.Greater(t, high, low)
}

func TestComputeForYouScoreFeaturedAndPlanBoost(t *testing.T) {
	now := int64(1000)

	base := ComputeForYouScore(now, now, PostStats{}, 0, false, "free", false)
	featured := ComputeForYouScore(now, now, PostStats{}, 0, true, "free", false)
	pro := ComputeForYouScore(now, now, PostStats{}, 0, false, "pro", false)

	require.Greater(t, featured, base)
	require.Greater(t, pro, base)
}

func TestComputeForYouScoreRunnableBonus(t *testing.T) {
	now := int64(1000)

	withCapsule := ComputeForYouScore(now, now, PostStats{}, 0, false, "free", true)
	without := ComputeForYouScore(now, now, PostStats{}, 0, false, "free", false)

	require.Greater(t, withCapsule, without)
}

func TestComputeForYouScoreNeverNegativeAge(t *testing.T) {
	now := int64(1000)
	require.NotPanics(t, func() {
		ComputeForYouScore(now+500, now, PostStats{}, 0, false, "free", false)
	})
}
