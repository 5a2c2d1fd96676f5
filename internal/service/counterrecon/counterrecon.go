// Package counterrecon implements the I/O side of Counter Reconciliation:
// a scheduled sweep that recomputes authoritative counts
// from source tables and overwrites the denormalized counters, CAS'd on
// the row's current value so a sweep never clobbers a concurrent write
// from the Counter Shard's flush, grounded on the same CAS idiom as
// internal/service/storageaccount.
package counterrecon

import (
	"context"
	"time"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/counterrecon"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

// Store is the persistence contract the sweep drives: recompute from
// source tables, read the current denormalized row, and CAS it.
type Store interface {
	ListPostIDs(ctx context.Context) ([]string, error)
	ListUserIDs(ctx context.Context) ([]string, error)

	RecomputePostCounts(ctx context.Context, postID string) (counterrecon.PostCounts, error)
	RecomputeUserCounts(ctx context.Context, userID string) (counterrecon.UserCounts, error)

	LoadPostCounts(ctx context.Context, postID string) (counterrecon.PostCounts, int64, error)
	LoadUserCounts(ctx context.Context, userID string) (counterrecon.UserCounts, int64, error)

	// CASPostCounts overwrites postID's counters iff its version still
	// matches expectedVersion; applied=false means a concurrent writer won
	// the race and the sweep should skip this row until its next pass.
	CASPostCounts(ctx context.Context, postID string, counts counterrecon.PostCounts, expectedVersion int64) (applied bool, err error)
	CASUserCounts(ctx context.Context, userID string, counts counterrecon.UserCounts, expectedVersion int64) (applied bool, err error)
}

// Report summarizes one sweep for observability.
type Report struct {
	PostsChecked    int
	PostsCorrected  int
	UsersChecked    int
	UsersCorrected  int
}

// Sweeper runs the scheduled reconciliation pass.
type Sweeper struct {
	store  Store
	logger mlog.Logger
}

// New builds a Sweeper over store.
func New(store Store, logger mlog.Logger) *Sweeper {
	return &Sweeper{store: store, logger: logger}
}

// Run recomputes every post's and user's authoritative counts and corrects
// any denormalized row that has drifted.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	var report Report

	postIDs, err := s.store.ListPostIDs(ctx)
	if err != nil {
		return report, err
	}

	for _, postID := range postIDs {
		report.PostsChecked++

		corrected, err := s.reconcilePost(ctx, postID)
		if err != nil {
			s.logger.Warnf("counter reconciliation failed for post %q: %v", postID, err)
			continue
		}

		if corrected {
			report.PostsCorrected++
		}
	}

	userIDs, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return report, err
	}

	for _, userID := range userIDs {
		report.UsersChecked++

		corrected, err := s.reconcileUser(ctx, userID)
		if err != nil {
			s.logger.Warnf("counter reconciliation failed for user %q: %v", userID, err)
			continue
		}

		if corrected {
			report.UsersCorrected++
		}
	}

	return report, nil
}

func (s *Sweeper) reconcilePost(ctx context.Context, postID string) (bool, error) {
	authoritative, err := s.store.RecomputePostCounts(ctx, postID)
	if err != nil {
		return false, err
	}

	stored, version, err := s.store.LoadPostCounts(ctx, postID)
	if err != nil {
		return false, err
	}

	if _, drifted := counterrecon.DetectPostDrift(postID, stored, authoritative); !drifted {
		return false, nil
	}

	applied, err := s.store.CASPostCounts(ctx, postID, authoritative, version)
	if err != nil {
		return false, err
	}

	if !applied {
		s.logger.Infof("skipping post %q counter correction: concurrent write raced the sweep", postID)
		return false, nil
	}

	return true, nil
}

func (s *Sweeper) reconcileUser(ctx context.Context, userID string) (bool, error) {
	authoritative, err := s.store.RecomputeUserCounts(ctx, userID)
	if err != nil {
		return false, err
	}

	stored, version, err := s.store.LoadUserCounts(ctx, userID)
	if err != nil {
		return false, err
	}

	if _, drifted := counterrecon.DetectUserDrift(userID, stored, authoritative); !drifted {
		return false, nil
	}

	applied, err := s.store.CASUserCounts(ctx, userID, authoritative, version)
	if err != nil {
		return false, err
	}

	if !applied {
		s.logger.Infof("skipping user %q counter correction: concurrent write raced the sweep", userID)
		return false, nil
	}

	return true, nil
}

const defaultSweepInterval = 10 * time.Minute

// Loop is the background scheduled sweep, implementing launcher.App so
// InitServer runs it alongside the HTTP server.
type Loop struct {
	Sweeper  *Sweeper
	Logger   mlog.Logger
	Interval time.Duration
	Ctx      context.Context
}

// Run blocks, sweeping on a timer until Ctx is cancelled.
func (l *Loop) Run() {
	interval := l.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	ctx := l.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			report, err := l.Sweeper.Run(ctx)
			if err != nil {
				l.Logger.Errorf("counter reconciliation sweep failed: %v", err)
			} else {
				l.Logger.Infof("counter reconciliation sweep: %d/%d posts corrected, %d/%d users corrected",
					report.PostsCorrected, report.PostsChecked, report.UsersCorrected, report.UsersChecked)
			}

			timer.Reset(interval)
		}
	}
}
