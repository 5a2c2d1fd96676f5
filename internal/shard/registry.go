// Package shard implements the single-writer-per-key actor model the
// shards are built on: Counter Shard, Runtime Event Shard, Rate-Limit
// Shard, and the Artifact Compiler Coordinator all route requests for the
// same key to one goroutine, so reads and writes for that key never
// interleave. A buffered channel per key plus a registry keyed by string.
package shard

import (
	"context"
	"sync"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

type actor struct {
	inbox chan job
}

func newActor(logger mlog.Logger) *actor {
	a := &actor{inbox: make(chan job, 256)}

	go a.run(logger)

	return a
}

func (a *actor) run(logger mlog.Logger) {
	for j := range a.inbox {
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("shard actor recovered from panic: %v", r)
				}
			}()

			return j.fn(j.ctx)
		}()

		j.done <- err
	}
}

// Registry is a keyed registry of single-writer actors. It implements
// ports.ActorRegistry.
type Registry struct {
	mu     sync.Mutex
	actors map[string]*actor
	logger mlog.Logger
}

// NewRegistry builds an empty actor registry.
func NewRegistry(logger mlog.Logger) *Registry {
	return &Registry{actors: make(map[string]*actor), logger: logger}
}

func (r *Registry) actorFor(key string) *actor {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.actors[key]
	if !ok {
		a = newActor(r.logger)
		r.actors[key] = a
	}

	return a
}

// Dispatch enqueues fn to run exclusively against key and blocks the caller
// until fn returns or ctx is cancelled. fn runs on the actor's own goroutine,
// serialized against every other Dispatch call sharing the same key.
func (r *Registry) Dispatch(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	a := r.actorFor(key)

	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case a.inbox <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// KeyCount reports the number of live actors, used by tests and diagnostics.
func (r *Registry) KeyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.actors)
}
