package counterrecon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectPostDriftReportsNoDriftWhenEqual(t *testing.T) {
	counts := PostCounts{Runs: 5, Likes: 3, Comments: 1, Remixes: 0}

	_, drifted := DetectPostDrift("p1", counts, counts)
	require.False(t, drifted)
}

func TestDetectPostDriftReportsDriftOnMismatch(t *testing.T) {
	stored := PostCounts{Likes: 2}
	authoritative := PostCounts{Likes: 5}

	drift, drifted := DetectPostDrift("p1", stored, authoritative)
	require.True(t, drifted)
	require.Equal(t, "p1", drift.PostID)
	require.Equal(t, int64(2), drift.Stored.Likes)
	require.Equal(t, int64(5), drift.Authoritative.Likes)
}

func TestDetectUserDriftReportsNoDriftWhenEqual(t *testing.T) {
	counts := UserCounts{Followers: 10, Following: 4, Runs: 2}

	_, drifted := DetectUserDrift("u1", counts, counts)
	require.False(t, drifted)
}

func TestDetectUserDriftIncludesRemixes(t *testing.T) {
	stored := UserCounts{Remixes: 1}
	authoritative := UserCounts{Remixes: 3}

	drift, drifted := DetectUserDrift("u1", stored, authoritative)
	require.True(t, drifted)
	require.Equal(t, int64(3), drift.Authoritative.Remixes)
}

func TestDetectUserDriftReportsDriftOnMismatch(t *testing.T) {
	stored := UserCounts{Followers: 10}
	authoritative := UserCounts{Followers: 11}

	drift, drifted := DetectUserDrift("u1", stored, authoritative)
	require.True(t, drifted)
	require.Equal(t, int64(10), drift.Stored.Followers)
	require.Equal(t, int64(11), drift.Authoritative.Followers)
}
