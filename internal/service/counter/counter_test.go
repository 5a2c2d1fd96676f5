package counter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	flushedPosts []map[string]PostDelta
	flushedUsers []map[string]UserDelta
	failNext     bool
}

func (f *fakeStore) FlushPosts(ctx context.Context, deltas map[string]PostDelta) error {
	if f.failNext {
		return context.Canceled
	}

	f.flushedPosts = append(f.flushedPosts, deltas)

	return nil
}

func (f *fakeStore) FlushUsers(ctx context.Context, deltas map[string]UserDelta) error {
	f.flushedUsers = append(f.flushedUsers, deltas)

	return nil
}

func TestIncrementPostRejectsAllZeroDelta(t *testing.T) {
	store := &fakeStore{}
	c := New(nil, store)

	require.NoError(t, c.IncrementPost(context.Background(), "p1", PostDelta{}, false))

	posts, _ := c.PendingCounts()
	require.Equal(t, 0, posts, "an all-zero delta must not mark the post dirty")
}

func TestIncrementPostAccumulates(t *testing.T) {
	store := &fakeStore{}
	c := New(nil, store)

	require.NoError(t, c.IncrementPost(context.Background(), "p1", PostDelta{Likes: 1}, false))
	require.NoError(t, c.IncrementPost(context.Background(), "p1", PostDelta{Likes: 1, Comments: 1}, false))

	posts, _ := c.PendingCounts()
	require.Equal(t, 1, posts)
}

func TestIncrementPostShadowModeDoesNotMutate(t *testing.T) {
	store := &fakeStore{}
	c := New(nil, store)

	require.NoError(t, c.IncrementPost(context.Background(), "p1", PostDelta{Likes: 5}, true))

	posts, _ := c.PendingCounts()
	require.Equal(t, 0, posts, "shadow mode must accept the call without buffering a mutation")
}

func TestIncrementPostIgnoresEmptyID(t *testing.T) {
	store := &fakeStore{}
	c := New(nil, store)

	require.NoError(t, c.IncrementPost(context.Background(), "", PostDelta{Likes: 1}, false))

	posts, _ := c.PendingCounts()
	require.Equal(t, 0, posts)
}

func TestFlushClearsBufferOnSuccess(t *testing.T) {
	store := &fakeStore{}
	c := New(nil, store)

	require.NoError(t, c.IncrementPost(context.Background(), "p1", PostDelta{Likes: 1}, false))
	require.NoError(t, c.IncrementUser(context.Background(), "u1", UserDelta{Runs: 1}, false))

	require.NoError(t, c.Flush(context.Background()))

	posts, users := c.PendingCounts()
	require.Equal(t, 0, posts)
	require.Equal(t, 0, users)
	require.Len(t, store.flushedPosts, 1)
	require.Equal(t, int64(1), store.flushedPosts[0]["p1"].Likes)
}

func TestFlushLeavesBufferOnFailure(t *testing.T) {
	store := &fakeStore{failNext: true}
	c := New(nil, store)

	require.NoError(t, c.IncrementPost(context.Background(), "p1", PostDelta{Likes: 1}, false))
	require.Error(t, c.Flush(context.Background()))

	posts, _ := c.PendingCounts()
	require.Equal(t, 1, posts, "a failed flush must retain the buffered delta for the next retry")
}
