// Package feed implements the Feed & Ranking service: mode
// dispatch (latest/following/tags/foryou), safety filtering, and batched
// per-post/per-viewer enrichment on top of the pure domain/feed scorer.
package feed

import (
	"context"
	"sort"
	"time"

	domainfeed "github.com/Braden-sui/Vibecodr-sub002/internal/domain/feed"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
)

// Mode selects the feed query shape.
type Mode string

const (
	ModeLatest    Mode = "latest"
	ModeFollowing Mode = "following"
	ModeTags      Mode = "tags"
	ModeForYou    Mode = "foryou"
)

// Post is one candidate row before enrichment.
type Post struct {
	ID          string
	AuthorID    string
	Title       string
	Description string
	Tags        []string
	CapsuleID   string
	ContentHash string
	CreatedAt   time.Time
	Visibility  string // "public", "unlisted", "private"
	Quarantined bool
}

// AuthorMeta is the author-level signal the foryou scorer and safety
// filters need.
type AuthorMeta struct {
	Followers int64
	Featured  bool
	Plan      string
	Suspended bool
	ShadowBan bool
}

// Store is the relational read surface this service drives. Every method
// is a single batched round-trip over a candidate id set, one round-trip
// per aggregate.
type Store interface {
	FetchLatest(ctx context.Context, limit, offset int) ([]Post, error)
	FetchFollowing(ctx context.Context, viewerID string, limit, offset int) ([]Post, error)
	FetchByTagsOrQuery(ctx context.Context, tag, query string, limit, offset int) ([]Post, error)
	FetchByAuthor(ctx context.Context, authorID string, limit, offset int) ([]Post, error)
	FetchForYouCandidates(ctx context.Context, limit int) ([]Post, error)

	Aggregates(ctx context.Context, postIDs []string) (map[string]domainfeed.PostStats, error)
	AuthorsMeta(ctx context.Context, authorIDs []string) (map[string]AuthorMeta, error)
	LikedByViewer(ctx context.Context, viewerID string, postIDs []string) (map[string]bool, error)
	FollowingAuthors(ctx context.Context, viewerID string, authorIDs []string) (map[string]bool, error)
}

// ArtifactCache resolves the latest compiled artifact id for a capsule,
// used only when RUNTIME_ARTIFACTS_ENABLED is set.
type ArtifactCache interface {
	LatestArtifactID(ctx context.Context, capsuleID string) (artifactID string, ok bool)
}

// Lister drives the feed query pipeline.
type Lister struct {
	store                   Store
	artifacts               ArtifactCache
	runtimeArtifactsEnabled bool
	nowSec                  func() int64
}

// New builds a Lister. artifacts may be nil when runtimeArtifactsEnabled is
// false.
func New(store Store, artifacts ArtifactCache, runtimeArtifactsEnabled bool, nowSec func() int64) *Lister {
	if nowSec == nil {
		nowSec = func() int64 { return time.Now().Unix() }
	}

	return &Lister{store: store, artifacts: artifacts, runtimeArtifactsEnabled: runtimeArtifactsEnabled, nowSec: nowSec}
}

// ListInput is the contract for GET /posts. AuthorID is the userId query
// parameter: when set, the feed is restricted to that author's posts.
type ListInput struct {
	Mode     Mode
	ViewerID string
	AuthorID string
	Tag      string
	Query    string
	Limit    int
	Offset   int
}

// PostView is one fully enriched feed entry returned to the caller.
type PostView struct {
	Post
	Stats           domainfeed.PostStats
	LikedByViewer   bool
	FollowingAuthor bool
	RunnableRef     string // artifact id (runtime-artifacts path) or bundleKey/contentHash fallback
	Score           float64
}

// List runs mode dispatch, safety filtering, and enrichment, returning the
// page of results.
func (l *Lister) List(ctx context.Context, in ListInput) ([]PostView, error) {
	if in.Limit <= 0 || in.Limit > 50 || in.Offset < 0 {
		return nil, apperr.ValidationError{EntityType: "feed", Code: "invalid_pagination", Message: "limit must be 1-50 and offset must be >= 0"}
	}

	if in.Mode == ModeFollowing && in.ViewerID == "" {
		return nil, apperr.ValidationError{EntityType: "feed", Code: "viewer_required", Message: "the following feed requires an authenticated viewer"}
	}

	var (
		posts []Post
		err   error
	)

	switch {
	case in.AuthorID != "":
		posts, err = l.store.FetchByAuthor(ctx, in.AuthorID, in.Limit, in.Offset)
	case in.Mode == ModeFollowing:
		posts, err = l.store.FetchFollowing(ctx, in.ViewerID, in.Limit, in.Offset)
	case in.Mode == ModeTags:
		posts, err = l.store.FetchByTagsOrQuery(ctx, in.Tag, in.Query, in.Limit, in.Offset)
	case in.Mode == ModeForYou:
		posts, err = l.store.FetchForYouCandidates(ctx, candidatePoolSize(in.Limit))
	default:
		posts, err = l.store.FetchLatest(ctx, in.Limit, in.Offset)
	}

	if err != nil {
		return nil, err
	}

	posts = filterQuarantinedAndPrivate(posts)

	if len(posts) == 0 {
		return nil, nil
	}

	candidateAuthorIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		candidateAuthorIDs = append(candidateAuthorIDs, p.AuthorID)
	}

	authors, err := l.store.AuthorsMeta(ctx, candidateAuthorIDs)
	if err != nil {
		return nil, err
	}

	posts = filterSuspendedAuthors(posts, authors)

	if len(posts) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(posts))

	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	authorIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.AuthorID)
	}

	stats, err := l.store.Aggregates(ctx, ids)
	if err != nil {
		return nil, err
	}

	var liked, following map[string]bool

	if in.ViewerID != "" {
		liked, err = l.store.LikedByViewer(ctx, in.ViewerID, ids)
		if err != nil {
			return nil, err
		}

		following, err = l.store.FollowingAuthors(ctx, in.ViewerID, authorIDs)
		if err != nil {
			return nil, err
		}
	}

	views := make([]PostView, 0, len(posts))
	now := l.nowSec()

	for _, p := range posts {
		meta := authors[p.AuthorID]

		view := PostView{
			Post:            p,
			Stats:           stats[p.ID],
			LikedByViewer:   liked[p.ID],
			FollowingAuthor: following[p.AuthorID],
			RunnableRef:     l.runnableRef(ctx, p),
		}

		if in.Mode == ModeForYou {
			view.Score = domainfeed.ComputeForYouScore(
				p.CreatedAt.Unix(), now, view.Stats, meta.Followers, meta.Featured, meta.Plan, p.CapsuleID != "",
			)
		}

		views = append(views, view)
	}

	if in.Mode == ModeForYou {
		sort.SliceStable(views, func(i, j int) bool {
			if views[i].Score != views[j].Score {
				return views[i].Score > views[j].Score
			}

			return views[i].CreatedAt.After(views[j].CreatedAt)
		})

		if len(views) > in.Limit {
			views = views[:in.Limit]
		}
	}

	return views, nil
}

func (l *Lister) runnableRef(ctx context.Context, p Post) string {
	if p.CapsuleID == "" {
		return ""
	}

	if l.runtimeArtifactsEnabled && l.artifacts != nil {
		if id, ok := l.artifacts.LatestArtifactID(ctx, p.CapsuleID); ok {
			return id
		}
	}

	return p.ContentHash
}

// filterQuarantinedAndPrivate drops quarantined and non-public posts from
// any feed surface.
func filterQuarantinedAndPrivate(posts []Post) []Post {
	out := make([]Post, 0, len(posts))

	for _, p := range posts {
		if p.Quarantined || p.Visibility != "public" {
			continue
		}

		out = append(out, p)
	}

	return out
}

// filterSuspendedAuthors drops posts whose author is suspended or
// shadow-banned.
func filterSuspendedAuthors(posts []Post, authors map[string]AuthorMeta) []Post {
	out := make([]Post, 0, len(posts))

	for _, p := range posts {
		meta := authors[p.AuthorID]
		if meta.Suspended || meta.ShadowBan {
			continue
		}

		out = append(out, p)
	}

	return out
}

func candidatePoolSize(limit int) int {
	pool := limit * 5
	if pool < 100 {
		pool = 100
	}

	return pool
}
