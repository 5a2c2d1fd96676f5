// Package runtimeevent implements the Runtime Event Shard: a
// bounded, idempotent buffer of runtime telemetry events flushed to the
// relational store on a timer or once the buffer crosses a size threshold,
// mirroring telemetry out-of-band via ports.EventSink the same way
// runsession's run-lifecycle events do.
package runtimeevent

import (
	"context"
	"time"

	"github.com/Braden-sui/Vibecodr-sub002/internal/ports"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

const shardKey = "runtime-event-shard"

// Event is one runtime telemetry event (console log, error, lifecycle
// marker) emitted by a running capsule.
type Event struct {
	ID        string
	RunID     string
	Type      string
	Payload   string
	CreatedAt time.Time
}

// Store persists a batch of events idempotently: a re-delivered event with
// an id already present in the table is silently skipped.
type Store interface {
	InsertEvents(ctx context.Context, events []Event) error
}

const (
	defaultBufferLimit   = 100
	defaultFlushInterval = 5 * time.Second
	flushBackoff         = 1 * time.Second
)

// Shard buffers events and flushes them through the single-writer actor
// registry, so Append and a concurrent timer-driven Flush never race the
// buffer slice.
type Shard struct {
	registry    ports.ActorRegistry
	store       Store
	telemetry   ports.EventSink
	bufferLimit int
	buffer      []Event
	flushSignal chan struct{}
}

// New builds a Shard. telemetry may be nil (no mirror configured).
func New(registry ports.ActorRegistry, store Store, telemetry ports.EventSink) *Shard {
	return &Shard{
		registry:    registry,
		store:       store,
		telemetry:   telemetry,
		bufferLimit: defaultBufferLimit,
		flushSignal: make(chan struct{}, 1),
	}
}

func (s *Shard) dispatch(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.registry == nil {
		return fn(ctx)
	}

	return s.registry.Dispatch(ctx, shardKey, fn)
}

// Append buffers ev, mirrors it to telemetry best-effort, and signals a
// flush once the buffer reaches bufferLimit.
func (s *Shard) Append(ctx context.Context, ev Event) error {
	return s.dispatch(ctx, func(ctx context.Context) error {
		s.buffer = append(s.buffer, ev)

		if s.telemetry != nil {
			if err := s.telemetry.Publish(ctx, "runtime_event", []byte(ev.Payload)); err != nil {
				// Telemetry is a best-effort mirror; a failure here must
				// never block the authoritative buffered write.
				_ = err
			}
		}

		if len(s.buffer) >= s.bufferLimit {
			select {
			case s.flushSignal <- struct{}{}:
			default:
			}
		}

		return nil
	})
}

// Flush writes the buffered events as one batch. On failure the events are
// re-prepended to the buffer (preserving arrival order) so the next
// scheduled flush retries them rather than dropping them.
func (s *Shard) Flush(ctx context.Context) error {
	return s.dispatch(ctx, func(ctx context.Context) error {
		if len(s.buffer) == 0 {
			return nil
		}

		pending := s.buffer
		s.buffer = nil

		if err := s.store.InsertEvents(ctx, pending); err != nil {
			s.buffer = append(pending, s.buffer...)

			return err
		}

		return nil
	})
}

// PendingCount reports the number of buffered events, for tests.
func (s *Shard) PendingCount() int {
	return len(s.buffer)
}

// FlushLoop is the background "alarm": it flushes on a timer, and
// immediately when Append signals the buffer crossed bufferLimit.
type FlushLoop struct {
	Shard    *Shard
	Logger   mlog.Logger
	Interval time.Duration
	Ctx      context.Context
}

// Run blocks, flushing on a timer or size-threshold signal until Ctx is
// cancelled.
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

	flush := func() {
		if err := f.Shard.Flush(ctx); err != nil {
			f.Logger.Errorf("runtime event shard flush failed, retrying in %s: %v", flushBackoff, err)
			timer.Reset(flushBackoff)

			return
		}

		timer.Reset(interval)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			flush()
		case <-f.Shard.flushSignal:
			flush()
		}
	}
}
