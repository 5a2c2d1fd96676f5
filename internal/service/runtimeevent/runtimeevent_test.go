package runtimeevent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	batches  [][]Event
	failNext bool
}

func (f *fakeStore) InsertEvents(ctx context.Context, events []Event) error {
	if f.failNext {
		f.failNext = false

		return context.Canceled
	}

	f.batches = append(f.batches, events)

	return nil
}

func TestAppendBuffersEvent(t *testing.T) {
	store := &fakeStore{}
	s := New(nil, store, nil)

	require.NoError(t, s.Append(context.Background(), Event{ID: "e1"}))
	require.Equal(t, 1, s.PendingCount())
}

func TestFlushClearsBufferOnSuccess(t *testing.T) {
	store := &fakeStore{}
	s := New(nil, store, nil)

	require.NoError(t, s.Append(context.Background(), Event{ID: "e1"}))
	require.NoError(t, s.Flush(context.Background()))
	require.Equal(t, 0, s.PendingCount())
	require.Len(t, store.batches, 1)
}

func TestFlushRePrependsOnFailurePreservingOrder(t *testing.T) {
	store := &fakeStore{failNext: true}
	s := New(nil, store, nil)

	require.NoError(t, s.Append(context.Background(), Event{ID: "e1"}))
	require.NoError(t, s.Append(context.Background(), Event{ID: "e2"}))

	require.Error(t, s.Flush(context.Background()))
	require.Equal(t, 2, s.PendingCount())

	require.NoError(t, s.Append(context.Background(), Event{ID: "e3"}))
	require.NoError(t, s.Flush(context.Background()))

	require.Len(t, store.batches, 1)
	ids := make([]string, 0, 3)
	for _, e := range store.batches[0] {
		ids = append(ids, e.ID)
	}
	require.Equal(t, []string{"e1", "e2", "e3"}, ids, "events must flush in original arrival order after a retry")
}

func TestAppendSignalsFlushAtBufferLimit(t *testing.T) {
	store := &fakeStore{}
	s := New(nil, store, nil)
	s.bufferLimit = 2

	require.NoError(t, s.Append(context.Background(), Event{ID: "e1"}))
	select {
	case <-s.flushSignal:
		t.Fatal("flush signal must not fire before the buffer reaches the limit")
	default:
	}

	require.NoError(t, s.Append(context.Background(), Event{ID: "e2"}))
	select {
	case <-s.flushSignal:
	default:
		t.Fatal("flush signal must fire once the buffer reaches the limit")
	}
}
