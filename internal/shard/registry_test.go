package shard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

func TestDispatchSerializesSameKey(t *testing.T) {
	r := NewRegistry(&mlog.NoneLogger{})

	var (
		active int32
		maxSeen int32
		wg      sync.WaitGroup
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := r.Dispatch(context.Background(), "post:1", func(ctx context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					old := atomic.LoadInt32(&maxSeen)
					if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
						break
					}
				}

				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)

				return nil
			})
			require.NoError(t, err)
		}()
	}

	wg.Wait()

	require.Equal(t, int32(1), maxSeen, "exactly one goroutine at a time may run against a given key")
}

func TestDispatchDistinctKeysRunConcurrently(t *testing.T) {
	r := NewRegistry(&mlog.NoneLogger{})

	start := make(chan struct{})

	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		key := "post:" + string(rune('a'+i))

		wg.Add(1)

		go func() {
			defer wg.Done()

			_ = r.Dispatch(context.Background(), key, func(ctx context.Context) error {
				<-start
				return nil
			})
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(start)
	wg.Wait()

	require.Equal(t, 4, r.KeyCount())
}

func TestDispatchPropagatesError(t *testing.T) {
	r := NewRegistry(&mlog.NoneLogger{})

	sentinel := context.Canceled

	err := r.Dispatch(context.Background(), "k", func(ctx context.Context) error {
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
}

func TestDispatchRecoversPanicAndKeepsActorAlive(t *testing.T) {
	r := NewRegistry(&mlog.NoneLogger{})

	err := r.Dispatch(context.Background(), "k", func(ctx context.Context) error {
		panic("boom")
	})
	require.NoError(t, err, "a recovered panic reports nil rather than hanging the caller")

	// the actor's goroutine must still be alive to serve the next job.
	err = r.Dispatch(context.Background(), "k", func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
}
