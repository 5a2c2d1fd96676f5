package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFreePlanQuotaLimits(t *testing.T) {
	limits := LimitsFor(Free)
	require.Equal(t, int64(5000), limits.MaxRunsPerMonth)

	usage := Usage{RunsThisMonth: 6000}
	require.True(t, usage.OverQuota(limits))
	require.InDelta(t, 120.0, usage.PercentUsed(limits), 0.01)
}

func TestUnknownPlanDefaultsToFree(t *testing.T) {
	require.Equal(t, LimitsFor(Free), LimitsFor(Plan("bogus")))
}

func TestParse(t *testing.T) {
	p, err := Parse("creator")
	require.NoError(t, err)
	require.Equal(t, Creator, p)

	_, err = Parse("enterprise")
	require.Error(t, err)
}

func TestProPlanAllowsFreeNetProxy(t *testing.T) {
	require.True(t, LimitsFor(Pro).NetProxyFree)
	require.False(t, LimitsFor(Free).NetProxyFree)
}
