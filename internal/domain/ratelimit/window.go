// Package ratelimit implements the per-key fixed-window counter that backs
// the Rate-Limit Shard and the Egress Proxy's per-(user,host) limit.
package ratelimit

// Window is the in-memory state of one fixed window: a count and the
// millisecond timestamp it resets at.
type Window struct {
	Count   int64
	ResetMs int64
}

// Result is what Check returns to the caller.
type Result struct {
	Allowed   bool
	Remaining int64
	ResetMs   int64
	Total     int64
	Limit     int64
	WindowSec int64
}

// Check applies cost against the fixed window for a key, rolling the window
// over if nowMs has passed resetMs. The caller (a Rate-Limit Shard actor) is
// responsible for ensuring this runs under single-writer-per-key discipline;
// Check itself performs no locking.
func Check(w *Window, limit int64, windowSec int64, cost int64, nowMs int64) (Result, Window) {
	if w == nil || nowMs >= w.ResetMs {
		w = &Window{Count: 0, ResetMs: nowMs + windowSec*1000}
	}

	next := *w

	if next.Count+cost > limit {
		return Result{
			Allowed:   false,
			Remaining: limit - next.Count,
			ResetMs:   next.ResetMs,
			Total:     next.Count,
			Limit:     limit,
			WindowSec: windowSec,
		}, next
	}

	next.Count += cost

	return Result{
		Allowed:   true,
		Remaining: limit - next.Count,
		ResetMs:   next.ResetMs,
		Total:     next.Count,
		Limit:     limit,
		WindowSec: windowSec,
	}, next
}
