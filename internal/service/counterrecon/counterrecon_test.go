package counterrecon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domaincounterrecon "github.com/Braden-sui/Vibecodr-sub002/internal/domain/counterrecon"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

type fakeStore struct {
	postIDs        []string
	userIDs        []string
	authoritativePosts map[string]domaincounterrecon.PostCounts
	authoritativeUsers map[string]domaincounterrecon.UserCounts
	storedPosts    map[string]domaincounterrecon.PostCounts
	storedUsers    map[string]domaincounterrecon.UserCounts
	postVersions   map[string]int64
	userVersions   map[string]int64
	casRejectPost  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		authoritativePosts: map[string]domaincounterrecon.PostCounts{},
		authoritativeUsers: map[string]domaincounterrecon.UserCounts{},
		storedPosts:        map[string]domaincounterrecon.PostCounts{},
		storedUsers:        map[string]domaincounterrecon.UserCounts{},
		postVersions:       map[string]int64{},
		userVersions:       map[string]int64{},
	}
}

func (f *fakeStore) ListPostIDs(ctx context.Context) ([]string, error) { return f.postIDs, nil }
func (f *fakeStore) ListUserIDs(ctx context.Context) ([]string, error) { return f.userIDs, nil }

func (f *fakeStore) RecomputePostCounts(ctx context.Context, postID string) (domaincounterrecon.PostCounts, error) {
	return f.authoritativePosts[postID], nil
}

func (f *fakeStore) RecomputeUserCounts(ctx context.Context, userID string) (domaincounterrecon.UserCounts, error) {
	return f.authoritativeUsers[userID], nil
}

func (f *fakeStore) LoadPostCounts(ctx context.Context, postID string) (domaincounterrecon.PostCounts, int64, error) {
	return f.storedPosts[postID], f.postVersions[postID], nil
}

func (f *fakeStore) LoadUserCounts(ctx context.Context, userID string) (domaincounterrecon.UserCounts, int64, error) {
	return f.storedUsers[userID], f.userVersions[userID], nil
}

func (f *fakeStore) CASPostCounts(ctx context.Context, postID string, counts domaincounterrecon.PostCounts, expectedVersion int64) (bool, error) {
	if postID == f.casRejectPost {
		return false, nil
	}

	f.storedPosts[postID] = counts
	f.postVersions[postID]++

	return true, nil
}

func (f *fakeStore) CASUserCounts(ctx context.Context, userID string, counts domaincounterrecon.UserCounts, expectedVersion int64) (bool, error) {
	f.storedUsers[userID] = counts
	f.userVersions[userID]++

	return true, nil
}

func testLogger() *mlog.GoLogger { return &mlog.GoLogger{Level: mlog.InfoLevel} }

func TestRunCorrectsDriftedPost(t *testing.T) {
	store := newFakeStore()
	store.postIDs = []string{"p1"}
	store.storedPosts["p1"] = domaincounterrecon.PostCounts{Likes: 2}
	store.authoritativePosts["p1"] = domaincounterrecon.PostCounts{Likes: 9}

	s := New(store, testLogger())

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.PostsChecked)
	require.Equal(t, 1, report.PostsCorrected)
	require.Equal(t, int64(9), store.storedPosts["p1"].Likes)
}

func TestRunSkipsPostsWithoutDrift(t *testing.T) {
	store := newFakeStore()
	store.postIDs = []string{"p1"}
	counts := domaincounterrecon.PostCounts{Likes: 5}
	store.storedPosts["p1"] = counts
	store.authoritativePosts["p1"] = counts

	s := New(store, testLogger())

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.PostsCorrected)
}

func TestRunSkipsWhenCASRaced(t *testing.T) {
	store := newFakeStore()
	store.postIDs = []string{"p1"}
	store.casRejectPost = "p1"
	store.storedPosts["p1"] = domaincounterrecon.PostCounts{Likes: 2}
	store.authoritativePosts["p1"] = domaincounterrecon.PostCounts{Likes: 9}

	s := New(store, testLogger())

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.PostsCorrected, "a CAS race must not count as corrected")
	require.Equal(t, int64(2), store.storedPosts["p1"].Likes, "the losing write must leave the stored row untouched")
}

func TestRunCorrectsDriftedUser(t *testing.T) {
	store := newFakeStore()
	store.userIDs = []string{"u1"}
	store.storedUsers["u1"] = domaincounterrecon.UserCounts{Followers: 1}
	store.authoritativeUsers["u1"] = domaincounterrecon.UserCounts{Followers: 4}

	s := New(store, testLogger())

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.UsersCorrected)
}
