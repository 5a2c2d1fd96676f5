// Package runsession implements the Quota & Run Session Manager: monthly
// run quota, active-session cap, and per-run wall-clock budget enforcement.
package runsession

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/plan"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/counter"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
)

// RunRef is the subset of a persisted run row needed to enforce ownership,
// the completeRun capsule/post mismatch checks, and duration normalization
// when the caller omits durationMs.
type RunRef struct {
	OwnerUserID string
	CapsuleID   string
	PostID      string
	StartedAtMs int64
}

// Store is the narrow slice of the relational store this service needs,
// kept separate from a catch-all RelationalStore interface so the service
// stays testable against a tiny hand-written fake.
type Store interface {
	// FindRun returns the stored owner/capsule/post of an existing run, and
	// exists=false if the run does not exist.
	FindRun(ctx context.Context, runID string) (ref RunRef, exists bool, err error)
	// CountActiveRuns counts runs for userID with status=started and
	// started_at >= sinceMs.
	CountActiveRuns(ctx context.Context, userID string, sinceMs int64) (int64, error)
	// CountRunsThisMonth counts runs for userID with started_at >=
	// startOfMonthMs, regardless of the user's current moderation status.
	CountRunsThisMonth(ctx context.Context, userID string, startOfMonthMs int64) (int64, error)
	// InsertRun creates the run row.
	InsertRun(ctx context.Context, run Run) error
	// CompleteRun marks a run finished, storing the status, duration and
	// error message as given; the Manager clamps the duration first.
	CompleteRun(ctx context.Context, runID string, status string, durationMs int64, errorMessage string) error
	// AppendLogs inserts up to 25 sanitized log entries for a run.
	AppendLogs(ctx context.Context, runID string, entries []LogEntry) error
}

// Run is the row persisted for a run.
type Run struct {
	ID         string
	UserID     string
	CapsuleID  string
	PostID     string
	ArtifactID string
	Status     string
	StartedAt  time.Time
}

// LogEntry is one sanitized run log line.
type LogEntry struct {
	Level   string
	Message string
	Source  string
}

const (
	maxLogEntries     = 25
	maxLogMessageLen  = 500
	minActiveWindowSec = 120
)

var validLogLevels = map[string]bool{"log": true, "info": true, "warn": true, "error": true}
var validLogSources = map[string]bool{"preview": true, "player": true}

// EventSink fires run-lifecycle events without the caller waiting on delivery.
type EventSink interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Manager enforces the quota, concurrency, and budget rules.
type Manager struct {
	store               Store
	counters            *counter.Coordinator
	events              EventSink
	maxConcurrentActive int64
	sessionMaxMs        int64
	nowMs               func() int64
}

// New builds a Manager. nowMs defaults to time.Now if nil (tests supply a
// deterministic clock). counters may be nil (tests that don't care about
// counter side effects).
func New(store Store, counters *counter.Coordinator, events EventSink, maxConcurrentActive int64, sessionMaxMs int64, nowMs func() int64) *Manager {
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}

	return &Manager{
		store:               store,
		counters:            counters,
		events:              events,
		maxConcurrentActive: maxConcurrentActive,
		sessionMaxMs:        sessionMaxMs,
		nowMs:               nowMs,
	}
}

// StartRunInput is the contract for startRun.
type StartRunInput struct {
	UserID     string
	CapsuleID  string
	PostID     string
	RunID      string
	ArtifactID string
	Plan       plan.Plan
}

// activeWindowSeconds implements window = max(120, ceil(sessionMaxMs/1000)*2).
func activeWindowSeconds(sessionMaxMs int64) int64 {
	sessionSec := (sessionMaxMs + 999) / 1000
	window := sessionSec * 2

	if window < minActiveWindowSec {
		return minActiveWindowSec
	}

	return window
}

// StartRun enforces idempotency-by-owner, the active-concurrency cap, and
// the monthly quota, then inserts the run row and bumps counters.
func (m *Manager) StartRun(ctx context.Context, in StartRunInput) (*Run, error) {
	if in.RunID != "" {
		ref, exists, err := m.store.FindRun(ctx, in.RunID)
		if err != nil {
			return nil, err
		}

		if exists {
			if ref.OwnerUserID != in.UserID {
				return nil, apperr.ForbiddenError{
					Code:    "RUN_OWNED_BY_ANOTHER",
					Title:   "Forbidden",
					Message: "this run belongs to another user",
				}
			}

			return &Run{ID: in.RunID, UserID: in.UserID, CapsuleID: ref.CapsuleID, PostID: ref.PostID, Status: "started"}, nil
		}
	}

	now := m.nowMs()
	window := activeWindowSeconds(m.sessionMaxMs)

	active, err := m.store.CountActiveRuns(ctx, in.UserID, now-window*1000)
	if err != nil {
		return nil, err
	}

	if active >= m.maxConcurrentActive {
		return nil, apperr.QuotaExceededError{
			Code:    "ACTIVE_LIMIT",
			Title:   "Too Many Active Runs",
			Message: "you have reached the maximum number of concurrent active runs",
			Details: map[string]any{"activeRuns": active, "maxConcurrentActive": m.maxConcurrentActive},
		}
	}

	limits := plan.LimitsFor(in.Plan)
	startOfMonth := startOfMonthMs(now)

	runsThisMonth, err := m.store.CountRunsThisMonth(ctx, in.UserID, startOfMonth)
	if err != nil {
		return nil, err
	}

	usage := plan.Usage{RunsThisMonth: runsThisMonth}
	if usage.OverQuota(limits) {
		return nil, apperr.QuotaExceededError{
			Code:    "BUDGET_EXCEEDED",
			Title:   "Monthly Quota Exceeded",
			Message: "you have reached your monthly run quota",
			Details: map[string]any{
				"plan":          in.Plan,
				"limits":        map[string]any{"maxRuns": limits.MaxRunsPerMonth},
				"usage":         map[string]any{"runs": usage.RunsThisMonth},
				"runsThisMonth": usage.RunsThisMonth,
				"percentUsed":   usage.PercentUsed(limits),
			},
		}
	}

	runID := in.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	run := Run{
		ID:        runID,
		UserID:    in.UserID,
		CapsuleID: in.CapsuleID,
		PostID:    in.PostID,
		ArtifactID: in.ArtifactID,
		Status:    "started",
		StartedAt: time.UnixMilli(now),
	}

	if err := m.store.InsertRun(ctx, run); err != nil {
		return nil, err
	}

	m.bumpCounters(ctx, in.UserID, in.PostID)
	m.emit(ctx, "run_started", run)

	return &run, nil
}

func (m *Manager) bumpCounters(ctx context.Context, userID, postID string) {
	if m.counters == nil {
		return
	}

	_ = m.counters.IncrementUser(ctx, userID, counter.UserDelta{Runs: 1}, false)

	if postID != "" {
		_ = m.counters.IncrementPost(ctx, postID, counter.PostDelta{Runs: 1}, false)
	}
}

func (m *Manager) emit(ctx context.Context, topic string, v any) {
	if m.events == nil {
		return
	}

	payload, err := json.Marshal(v)
	if err != nil {
		payload = []byte(topic)
	}

	_ = m.events.Publish(ctx, topic, payload)
}

func startOfMonthMs(nowMs int64) int64 {
	t := time.UnixMilli(nowMs).UTC()
	som := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)

	return som.UnixMilli()
}

// CompleteRunInput is the contract for completeRun.
// DurationMs is nil when the caller omitted it, in which case the duration
// is derived from the run's started_at.
type CompleteRunInput struct {
	RunID        string
	UserID       string
	CapsuleID    string
	PostID       string
	DurationMs   *int64
	Status       string
	ErrorMessage string
}

var validFinalStatuses = map[string]bool{"completed": true, "failed": true, "killed": true}

// CompleteRun clamps the duration to the session budget; a run that ran
// longer than the budget is stored as failed with the budget-exceeded error
// and the call then returns a BUDGET_EXCEEDED validation error. It also verifies the caller's
// capsuleId/postId still match what StartRun recorded, rejecting a
// completion that targets the wrong capsule or post.
func (m *Manager) CompleteRun(ctx context.Context, in CompleteRunInput) error {
	status := in.Status
	if status == "" {
		status = "completed"
	}

	if !validFinalStatuses[status] {
		return apperr.ValidationError{
			Code:    "INVALID_STATUS",
			Title:   "Bad Request",
			Message: "status must be completed, failed, or killed",
		}
	}

	ref, exists, err := m.store.FindRun(ctx, in.RunID)
	if err != nil {
		return err
	}

	if exists && ref.OwnerUserID != in.UserID {
		return apperr.ForbiddenError{
			Code:    "RUN_OWNED_BY_ANOTHER",
			Title:   "Forbidden",
			Message: "this run belongs to another user",
		}
	}

	durationMs := int64(0)

	if in.DurationMs != nil {
		if durationMs = *in.DurationMs; durationMs < 0 {
			durationMs = 0
		}
	} else if exists {
		durationMs = m.nowMs() - ref.StartedAtMs
	}

	if exists && in.CapsuleID != "" && in.CapsuleID != ref.CapsuleID {
		if err := m.store.CompleteRun(ctx, in.RunID, "failed", clampDuration(durationMs, m.sessionMaxMs), "capsule_mismatch"); err != nil {
			return err
		}

		return apperr.ValidationError{
			Code:    "CAPSULE_MISMATCH",
			Title:   "Bad Request",
			Message: "completeRun capsuleId does not match the run's capsuleId",
		}
	}

	if exists && in.PostID != "" && in.PostID != ref.PostID {
		if err := m.store.CompleteRun(ctx, in.RunID, "failed", clampDuration(durationMs, m.sessionMaxMs), "post_mismatch"); err != nil {
			return err
		}

		return apperr.ValidationError{
			Code:    "POST_MISMATCH",
			Title:   "Bad Request",
			Message: "completeRun postId does not match the run's postId",
		}
	}

	if durationMs > m.sessionMaxMs {
		if err := m.store.CompleteRun(ctx, in.RunID, "failed", m.sessionMaxMs, "runtime_budget_exceeded"); err != nil {
			return err
		}

		m.emit(ctx, "run_complete", map[string]any{"runId": in.RunID, "outcome": "killed", "durationMs": m.sessionMaxMs})

		return apperr.ValidationError{
			Code:    "BUDGET_EXCEEDED",
			Title:   "Bad Request",
			Message: "run exceeded the configured session duration budget",
		}
	}

	if err := m.store.CompleteRun(ctx, in.RunID, status, durationMs, in.ErrorMessage); err != nil {
		return err
	}

	m.emit(ctx, "run_complete", map[string]any{"runId": in.RunID, "outcome": status, "durationMs": durationMs})

	return nil
}

func clampDuration(durationMs, sessionMaxMs int64) int64 {
	if durationMs > sessionMaxMs {
		return sessionMaxMs
	}

	return durationMs
}

// AppendRunLogs validates and stores up to 25 sanitized log entries.
// Logs may be appended before the run row exists; ownership is only
// enforced when the run already exists.
func (m *Manager) AppendRunLogs(ctx context.Context, runID, userID string, entries []LogEntry) error {
	ref, exists, err := m.store.FindRun(ctx, runID)
	if err != nil {
		return err
	}

	if exists && ref.OwnerUserID != userID {
		return apperr.ForbiddenError{
			Code:    "RUN_OWNED_BY_ANOTHER",
			Title:   "Forbidden",
			Message: "this run belongs to another user",
		}
	}

	if len(entries) > maxLogEntries {
		entries = entries[:maxLogEntries]
	}

	sanitized := make([]LogEntry, 0, len(entries))

	for _, e := range entries {
		if !validLogLevels[e.Level] || !validLogSources[e.Source] {
			continue
		}

		if len(e.Message) > maxLogMessageLen {
			e.Message = e.Message[:maxLogMessageLen]
		}

		sanitized = append(sanitized, e)
		m.emit(ctx, "run_log_accepted", e)
	}

	return m.store.AppendLogs(ctx, runID, sanitized)
}
