package social

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Braden-sui/Vibecodr-sub002/internal/ports"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/counter"
)

type fakeStore struct {
	likes         map[string]bool
	follows       map[string]bool
	postAuthors   map[string]string
	comments      map[string]Comment
	notifications map[string][]Notification
	postOwners    map[string]string
	postQuarantine    map[string]bool
	commentQuarantine map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		likes:             map[string]bool{},
		follows:           map[string]bool{},
		postAuthors:       map[string]string{},
		comments:          map[string]Comment{},
		notifications:     map[string][]Notification{},
		postOwners:        map[string]string{},
		postQuarantine:    map[string]bool{},
		commentQuarantine: map[string]bool{},
	}
}

func (f *fakeStore) InsertLike(ctx context.Context, userID, postID string) (bool, error) {
	key := userID + ":" + postID
	if f.likes[key] {
		return false, nil
	}
	f.likes[key] = true
	return true, nil
}

func (f *fakeStore) DeleteLike(ctx context.Context, userID, postID string) (bool, error) {
	key := userID + ":" + postID
	if !f.likes[key] {
		return false, nil
	}
	delete(f.likes, key)
	return true, nil
}

func (f *fakeStore) GetPostAuthor(ctx context.Context, postID string) (string, bool, error) {
	a, ok := f.postAuthors[postID]
	return a, ok, nil
}

func (f *fakeStore) InsertFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	key := followerID + ":" + followeeID
	if f.follows[key] {
		return false, nil
	}
	f.follows[key] = true
	return true, nil
}

func (f *fakeStore) DeleteFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	key := followerID + ":" + followeeID
	if !f.follows[key] {
		return false, nil
	}
	delete(f.follows, key)
	return true, nil
}

func (f *fakeStore) InsertComment(ctx context.Context, c Comment) error {
	f.comments[c.ID] = c
	return nil
}

func (f *fakeStore) GetComment(ctx context.Context, commentID string) (Comment, bool, error) {
	c, ok := f.comments[commentID]
	return c, ok, nil
}

func (f *fakeStore) DeleteComment(ctx context.Context, commentID string) error {
	delete(f.comments, commentID)
	return nil
}

func (f *fakeStore) ListComments(ctx context.Context, postID string, includeQuarantined bool) ([]Comment, error) {
	var out []Comment
	for _, c := range f.comments {
		if c.PostID != postID {
			continue
		}
		if c.Quarantined && !includeQuarantined {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) InsertNotification(ctx context.Context, n Notification) error {
	f.notifications[n.UserID] = append(f.notifications[n.UserID], n)
	return nil
}

func (f *fakeStore) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return f.notifications[userID], nil
}

func (f *fakeStore) MarkRead(ctx context.Context, userID string, ids []string, all bool) error {
	list := f.notifications[userID]
	for i := range list {
		if all {
			list[i].Read = true
			continue
		}
		for _, id := range ids {
			if list[i].ID == id {
				list[i].Read = true
			}
		}
	}
	return nil
}

func (f *fakeStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	for _, notif := range f.notifications[userID] {
		if !notif.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) SetPostQuarantine(ctx context.Context, postID string, quarantined bool) error {
	f.postQuarantine[postID] = quarantined
	return nil
}

func (f *fakeStore) SetCommentQuarantine(ctx context.Context, commentID string, quarantined bool) error {
	f.commentQuarantine[commentID] = quarantined
	return nil
}

func (f *fakeStore) GetPostOwnerAndModerators(ctx context.Context, postID string) (string, bool, error) {
	o, ok := f.postOwners[postID]
	return o, ok, nil
}

type fakeCounterStore struct{}

func (fakeCounterStore) FlushPosts(ctx context.Context, deltas map[string]counter.PostDelta) error {
	return nil
}

func (fakeCounterStore) FlushUsers(ctx context.Context, deltas map[string]counter.UserDelta) error {
	return nil
}

type fakeAuditLog struct {
	entries []ports.AuditEntry
}

func (f *fakeAuditLog) Append(ctx context.Context, entry ports.AuditEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func newTestService(store *fakeStore, audit *fakeAuditLog) *Service {
	counters := counter.New(nil, fakeCounterStore{})
	seq := 0
	newID := func() string {
		seq++
		return "id-" + strconv.Itoa(seq)
	}
	fixedNow := func() time.Time { return time.Unix(0, 0) }
	return New(store, counters, audit, newID, fixedNow)
}

func TestLikePostIsIdempotentAndNotifiesNonAuthor(t *testing.T) {
	store := newFakeStore()
	store.postAuthors["p1"] = "author"
	s := newTestService(store, &fakeAuditLog{})

	require.NoError(t, s.LikePost(context.Background(), "liker", "p1"))
	require.NoError(t, s.LikePost(context.Background(), "liker", "p1"))

	require.Len(t, store.notifications["author"], 1, "a repeated like must not emit a second notification")
}

func TestLikePostDoesNotNotifySelfLike(t *testing.T) {
	store := newFakeStore()
	store.postAuthors["p1"] = "author"
	s := newTestService(store, &fakeAuditLog{})

	require.NoError(t, s.LikePost(context.Background(), "author", "p1"))
	require.Empty(t, store.notifications["author"])
}

func TestUnlikePostIsIdempotent(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store, &fakeAuditLog{})

	require.NoError(t, s.UnlikePost(context.Background(), "u1", "p1"), "unliking a post never liked must be a no-op")
}

func TestFollowUserForbidsSelfFollow(t *testing.T) {
	s := newTestService(newFakeStore(), &fakeAuditLog{})

	err := s.FollowUser(context.Background(), "u1", "u1")
	require.Error(t, err)
}

func TestFollowUserIsIdempotent(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store, &fakeAuditLog{})

	require.NoError(t, s.FollowUser(context.Background(), "u1", "u2"))
	require.NoError(t, s.FollowUser(context.Background(), "u1", "u2"))
	require.Len(t, store.notifications["u2"], 1)
}

func TestUnfollowUserIsIdempotent(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store, &fakeAuditLog{})

	require.NoError(t, s.UnfollowUser(context.Background(), "u1", "u2"))
}

func TestPostCommentRejectsEmptyBody(t *testing.T) {
	s := newTestService(newFakeStore(), &fakeAuditLog{})

	_, err := s.PostComment(context.Background(), CommentInput{PostID: "p1", AuthorID: "u1", Body: "   "})
	require.Error(t, err)
}

func TestPostCommentRejectsParentFromDifferentPost(t *testing.T) {
	store := newFakeStore()
	store.comments["parent"] = Comment{ID: "parent", PostID: "other-post"}
	s := newTestService(store, &fakeAuditLog{})

	parentID := "parent"
	_, err := s.PostComment(context.Background(), CommentInput{
		PostID:          "p1",
		AuthorID:        "u1",
		Body:            "hello",
		ParentCommentID: &parentID,
	})
	require.Error(t, err)
}

func TestPostCommentRejectsMissingParent(t *testing.T) {
	s := newTestService(newFakeStore(), &fakeAuditLog{})

	parentID := "does-not-exist"
	_, err := s.PostComment(context.Background(), CommentInput{
		PostID:          "p1",
		AuthorID:        "u1",
		Body:            "hello",
		ParentCommentID: &parentID,
	})
	require.Error(t, err)
}

func TestDeleteCommentAllowedByPostAuthor(t *testing.T) {
	store := newFakeStore()
	store.postAuthors["p1"] = "post-author"
	store.comments["c1"] = Comment{ID: "c1", PostID: "p1", AuthorID: "commenter"}
	s := newTestService(store, &fakeAuditLog{})

	require.NoError(t, s.DeleteComment(context.Background(), "post-author", "c1"))
}

func TestDeleteCommentForbidsOtherUsers(t *testing.T) {
	store := newFakeStore()
	store.postAuthors["p1"] = "post-author"
	store.comments["c1"] = Comment{ID: "c1", PostID: "p1", AuthorID: "commenter"}
	s := newTestService(store, &fakeAuditLog{})

	err := s.DeleteComment(context.Background(), "stranger", "c1")
	require.Error(t, err)
}

func TestListCommentsHidesQuarantinedFromNonOwner(t *testing.T) {
	store := newFakeStore()
	store.postOwners["p1"] = "owner"
	store.comments["c1"] = Comment{ID: "c1", PostID: "p1", Quarantined: true}
	store.comments["c2"] = Comment{ID: "c2", PostID: "p1", Quarantined: false}
	s := newTestService(store, &fakeAuditLog{})

	out, err := s.ListComments(context.Background(), "p1", "stranger", false)
	require.NoError(t, err)
	require.Len(t, out, 1)

	out, err = s.ListComments(context.Background(), "p1", "owner", false)
	require.NoError(t, err)
	require.Len(t, out, 2, "the post owner must see quarantined comments too")
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store, &fakeAuditLog{})

	require.NoError(t, store.InsertNotification(context.Background(), Notification{ID: "n1", UserID: "u1"}))
	require.NoError(t, store.InsertNotification(context.Background(), Notification{ID: "n2", UserID: "u1"}))

	count, err := s.Summary(context.Background(), "u1", 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, count.UnreadCount)

	require.NoError(t, s.MarkRead(context.Background(), "u1", []string{"n1"}, false))

	count, err = s.Summary(context.Background(), "u1", 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, count.UnreadCount)
}

func TestQuarantinePostAppendsAuditEntry(t *testing.T) {
	store := newFakeStore()
	audit := &fakeAuditLog{}
	s := newTestService(store, audit)

	require.NoError(t, s.QuarantinePost(context.Background(), "mod1", "p1", true, "reported spam"))
	require.Len(t, audit.entries, 1)
	require.Equal(t, "post", audit.entries[0].EntityType)
	require.Equal(t, "quarantined", audit.entries[0].ToStatus)
	require.True(t, store.postQuarantine["p1"])
}
