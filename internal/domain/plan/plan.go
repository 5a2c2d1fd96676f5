// Package plan defines the per-tier quota table.
package plan

import "fmt"

// Plan names the subscription tier used to look up quota limits.
type Plan string

const (
	Free    Plan = "free"
	Creator Plan = "creator"
	Pro     Plan = "pro"
	Team    Plan = "team"
)

// Limits is the quota envelope for one plan.
type Limits struct {
	MaxRunsPerMonth int64
	MaxStorageBytes int64
	NetProxyFree    bool
}

var table = map[Plan]Limits{
	Free:    {MaxRunsPerMonth: 5000, MaxStorageBytes: 500 << 20, NetProxyFree: false},
	Creator: {MaxRunsPerMonth: 20000, MaxStorageBytes: 2 << 30, NetProxyFree: false},
	Pro:     {MaxRunsPerMonth: 50000, MaxStorageBytes: 10 << 30, NetProxyFree: true},
	Team:    {MaxRunsPerMonth: 250000, MaxStorageBytes: 50 << 30, NetProxyFree: true},
}

// Parse maps a stored plan string to its Plan, erroring on anything outside
// the known tiers.
func Parse(s string) (Plan, error) {
	p := Plan(s)
	if _, ok := table[p]; !ok {
		return Free, fmt.Errorf("unknown plan %q", s)
	}

	return p, nil
}

// LimitsFor returns the quota envelope for plan, defaulting to Free for any
// unrecognized value.
func LimitsFor(p Plan) Limits {
	if l, ok := table[p]; ok {
		return l
	}

	return table[Free]
}

// Usage is a point-in-time snapshot of a user's quota consumption.
type Usage struct {
	RunsThisMonth int64
}

// PercentUsed returns runs consumed as a percentage of the plan's monthly cap.
func (u Usage) PercentUsed(l Limits) float64 {
	if l.MaxRunsPerMonth <= 0 {
		return 100
	}

	return 100 * float64(u.RunsThisMonth) / float64(l.MaxRunsPerMonth)
}

// OverQuota reports whether usage has reached or exceeded the plan's cap.
func (u Usage) OverQuota(l Limits) bool {
	return u.RunsThisMonth >= l.MaxRunsPerMonth
}
