package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainfeed "github.com/Braden-sui/Vibecodr-sub002/internal/domain/feed"
)

type fakeStore struct {
	latest     []Post
	following  []Post
	tags       []Post
	byAuthor   []Post
	candidates []Post
	stats      map[string]domainfeed.PostStats
	authors    map[string]AuthorMeta
	liked      map[string]bool
	followed   map[string]bool
}

func (f *fakeStore) FetchLatest(ctx context.Context, limit, offset int) ([]Post, error) { return f.latest, nil }
func (f *fakeStore) FetchFollowing(ctx context.Context, viewerID string, limit, offset int) ([]Post, error) {
	return f.following, nil
}
func (f *fakeStore) FetchByTagsOrQuery(ctx context.Context, tag, query string, limit, offset int) ([]Post, error) {
	return f.tags, nil
}
func (f *fakeStore) FetchByAuthor(ctx context.Context, authorID string, limit, offset int) ([]Post, error) {
	return f.byAuthor, nil
}
func (f *fakeStore) FetchForYouCandidates(ctx context.Context, limit int) ([]Post, error) {
	return f.candidates, nil
}
func (f *fakeStore) Aggregates(ctx context.Context, ids []string) (map[string]domainfeed.PostStats, error) {
	return f.stats, nil
}
func (f *fakeStore) AuthorsMeta(ctx context.Context, ids []string) (map[string]AuthorMeta, error) {
	return f.authors, nil
}
func (f *fakeStore) LikedByViewer(ctx context.Context, viewerID string, ids []string) (map[string]bool, error) {
	return f.liked, nil
}
func (f *fakeStore) FollowingAuthors(ctx context.Context, viewerID string, ids []string) (map[string]bool, error) {
	return f.followed, nil
}

func newStore() *fakeStore {
	return &fakeStore{stats: map[string]domainfeed.PostStats{}, authors: map[string]AuthorMeta{}, liked: map[string]bool{}, followed: map[string]bool{}}
}

func TestListRejectsBadPagination(t *testing.T) {
	l := New(newStore(), nil, false, nil)

	_, err := l.List(context.Background(), ListInput{Mode: ModeLatest, Limit: 0, Offset: 0})
	require.Error(t, err)

	_, err = l.List(context.Background(), ListInput{Mode: ModeLatest, Limit: 51, Offset: 0})
	require.Error(t, err)

	_, err = l.List(context.Background(), ListInput{Mode: ModeLatest, Limit: 20, Offset: -1})
	require.Error(t, err)
}

func TestListFollowingRequiresViewer(t *testing.T) {
	l := New(newStore(), nil, false, nil)

	_, err := l.List(context.Background(), ListInput{Mode: ModeFollowing, Limit: 20, Offset: 0})
	require.Error(t, err)
}

func TestListFiltersQuarantinedAndNonPublic(t *testing.T) {
	store := newStore()
	store.latest = []Post{
		{ID: "p1", AuthorID: "a1", Visibility: "public", CreatedAt: time.Unix(100, 0)},
		{ID: "p2", AuthorID: "a1", Visibility: "public", Quarantined: true, CreatedAt: time.Unix(100, 0)},
		{ID: "p3", AuthorID: "a1", Visibility: "private", CreatedAt: time.Unix(100, 0)},
	}

	l := New(store, nil, false, nil)

	views, err := l.List(context.Background(), ListInput{Mode: ModeLatest, Limit: 20, Offset: 0})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "p1", views[0].ID)
}

func TestListFiltersSuspendedAuthors(t *testing.T) {
	store := newStore()
	store.latest = []Post{{ID: "p1", AuthorID: "a1", Visibility: "public", CreatedAt: time.Unix(100, 0)}}
	store.authors["a1"] = AuthorMeta{Suspended: true}

	l := New(store, nil, false, nil)

	views, err := l.List(context.Background(), ListInput{Mode: ModeLatest, Limit: 20, Offset: 0})
	require.NoError(t, err)
	require.Empty(t, views)
}

func TestListForYouRanksByScore(t *testing.T) {
	store := newStore()
	now := time.Unix(1000000, 0)
	store.candidates = []Post{
		{ID: "low", AuthorID: "a1", Visibility: "public", CreatedAt: now},
		{ID: "high", AuthorID: "a1", Visibility: "public", CreatedAt: now},
	}
	store.stats["high"] = domainfeed.PostStats{Runs: 100, Likes: 50}

	l := New(store, nil, false, func() int64 { return now.Unix() })

	views, err := l.List(context.Background(), ListInput{Mode: ModeForYou, Limit: 20, Offset: 0})
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, "high", views[0].ID, "the higher-engagement candidate must rank first")
}

func TestListPopulatesViewerPersonalization(t *testing.T) {
	store := newStore()
	store.latest = []Post{{ID: "p1", AuthorID: "a1", Visibility: "public", CreatedAt: time.Unix(100, 0)}}
	store.liked["p1"] = true
	store.followed["a1"] = true

	l := New(store, nil, false, nil)

	views, err := l.List(context.Background(), ListInput{Mode: ModeLatest, ViewerID: "viewer1", Limit: 20, Offset: 0})
	require.NoError(t, err)
	require.True(t, views[0].LikedByViewer)
	require.True(t, views[0].FollowingAuthor)
}

func TestListByAuthorUsesAuthorQuery(t *testing.T) {
	store := newStore()
	store.latest = []Post{{ID: "other", AuthorID: "a2", Visibility: "public", CreatedAt: time.Unix(100, 0)}}
	store.byAuthor = []Post{{ID: "mine", AuthorID: "a1", Visibility: "public", CreatedAt: time.Unix(100, 0)}}

	l := New(store, nil, false, nil)

	views, err := l.List(context.Background(), ListInput{Mode: ModeLatest, AuthorID: "a1", Limit: 20, Offset: 0})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "mine", views[0].ID)
}

func TestRunnableRefFallsBackToContentHash(t *testing.T) {
	store := newStore()
	store.latest = []Post{{ID: "p1", AuthorID: "a1", Visibility: "public", CapsuleID: "c1", ContentHash: "hash1", CreatedAt: time.Unix(100, 0)}}

	l := New(store, nil, false, nil)

	views, err := l.List(context.Background(), ListInput{Mode: ModeLatest, Limit: 20, Offset: 0})
	require.NoError(t, err)
	require.Equal(t, "hash1", views[0].RunnableRef)
}
