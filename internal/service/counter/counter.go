// Package counter implements the Counter Shard: an
// in-memory buffer of per-post/per-user deltas flushed in batches to the
// relational store, single-writer per shard key via internal/shard's actor
// registry so concurrent increments never race the buffer or the flush.
package counter

import (
	"context"
	"time"

	"github.com/Braden-sui/Vibecodr-sub002/internal/ports"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

// shardKey is the single logical key every counter operation dispatches
// through; the whole buffer is one actor holding two maps, posts ->
// PostDelta and users -> UserDelta.
const shardKey = "counter-shard"

// PostDelta is a signed delta applied to a post's denormalized counters.
type PostDelta struct {
	Runs     int64
	Likes    int64
	Comments int64
	Remixes  int64
}

func (d PostDelta) isZero() bool {
	return d.Runs == 0 && d.Likes == 0 && d.Comments == 0 && d.Remixes == 0
}

func (d *PostDelta) add(o PostDelta) {
	d.Runs += o.Runs
	d.Likes += o.Likes
	d.Comments += o.Comments
	d.Remixes += o.Remixes
}

// UserDelta is a signed delta applied to a user's denormalized counters.
type UserDelta struct {
	Runs      int64
	Followers int64
	Following int64
}

func (d UserDelta) isZero() bool {
	return d.Runs == 0 && d.Followers == 0 && d.Following == 0
}

func (d *UserDelta) add(o UserDelta) {
	d.Runs += o.Runs
	d.Followers += o.Followers
	d.Following += o.Following
}

// Store flushes the buffered deltas to the relational store as one batch
// statement per dirty entity, clamped non-negative.
type Store interface {
	FlushPosts(ctx context.Context, deltas map[string]PostDelta) error
	FlushUsers(ctx context.Context, deltas map[string]UserDelta) error
}

// Coordinator buffers counter deltas and flushes them through the
// single-writer shard actor keyed by shardKey.
type Coordinator struct {
	registry ports.ActorRegistry
	store    Store
	posts    map[string]PostDelta
	users    map[string]UserDelta
}

// New builds a Coordinator. registry may be nil in tests that only exercise
// the pure buffering logic; production callers always supply the shard
// registry so increments and flushes serialize against each other.
func New(registry ports.ActorRegistry, store Store) *Coordinator {
	return &Coordinator{
		registry: registry,
		store:    store,
		posts:    map[string]PostDelta{},
		users:    map[string]UserDelta{},
	}
}

func (c *Coordinator) dispatch(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.registry == nil {
		return fn(ctx)
	}

	return c.registry.Dispatch(ctx, shardKey, fn)
}

// IncrementPost applies delta to postID's buffered counters. An all-zero
// delta is rejected; shadow mode
// accepts the call without mutating state (dry-run observability).
func (c *Coordinator) IncrementPost(ctx context.Context, postID string, delta PostDelta, shadow bool) error {
	if postID == "" {
		return nil
	}

	if delta.isZero() {
		return nil
	}

	return c.dispatch(ctx, func(ctx context.Context) error {
		if shadow {
			return nil
		}

		cur := c.posts[postID]
		cur.add(delta)
		c.posts[postID] = cur

		return nil
	})
}

// IncrementUser applies delta to userID's buffered counters.
func (c *Coordinator) IncrementUser(ctx context.Context, userID string, delta UserDelta, shadow bool) error {
	if userID == "" {
		return nil
	}

	if delta.isZero() {
		return nil
	}

	return c.dispatch(ctx, func(ctx context.Context) error {
		if shadow {
			return nil
		}

		cur := c.users[userID]
		cur.add(delta)
		c.users[userID] = cur

		return nil
	})
}

// Flush writes every dirty entity to the store as one batch and clears the
// buffer on success. On failure the buffered deltas are left in place so
// the next scheduled flush retries them.
func (c *Coordinator) Flush(ctx context.Context) error {
	return c.dispatch(ctx, func(ctx context.Context) error {
		if len(c.posts) == 0 && len(c.users) == 0 {
			return nil
		}

		if err := c.store.FlushPosts(ctx, c.posts); err != nil {
			return err
		}

		if err := c.store.FlushUsers(ctx, c.users); err != nil {
			return err
		}

		c.posts = map[string]PostDelta{}
		c.users = map[string]UserDelta{}

		return nil
	})
}

// PendingCounts reports the number of buffered dirty post/user entries,
// for tests and observability.
func (c *Coordinator) PendingCounts() (posts int, users int) {
	return len(c.posts), len(c.users)
}

const (
	defaultFlushInterval = 5 * time.Second
	flushBackoff         = 1 * time.Second
)

// FlushLoop is the background "alarm" that periodically drains the
// Coordinator's buffer. It implements launcher.App so InitServer runs it
// alongside the HTTP server.
type FlushLoop struct {
	Coordinator *Coordinator
	Logger      mlog.Logger
	Interval    time.Duration
	Ctx         context.Context
}

// Run blocks, flushing on a timer until Ctx is cancelled.
func (f *FlushLoop) Run() {
	interval := f.Interval
	if interval <= 0 {
		interval = defaultFlushInterval
	}

	ctx := f.Ctx
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
			if err := f.Coordinator.Flush(ctx); err != nil {
				f.Logger.Errorf("counter shard flush failed, retrying in %s: %v", flushBackoff, err)
				timer.Reset(flushBackoff)

				continue
			}

			timer.Reset(interval)
		}
	}
}
