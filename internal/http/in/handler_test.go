package in

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	domainfeed "github.com/Braden-sui/Vibecodr-sub002/internal/domain/feed"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/feed"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/runsession"
	nethttp "github.com/Braden-sui/Vibecodr-sub002/pkg/net/http"
)

// withTestClaims stands in for the JWT guard: it stashes verified-looking
// claims the way Protect does, so handlers that read the caller id work
// without a real token.
func withTestClaims(subject string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("claims", &nethttp.Claims{Subject: subject})
		return c.Next()
	}
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}

	return resp.StatusCode, decoded
}

func TestValidateManifestAcceptsStringVersionPayload(t *testing.T) {
	app := fiber.New()
	h := &CapsuleHandler{}
	app.Post("/manifest/validate", h.ValidateManifest)

	status, body := doJSON(t, app, fiber.MethodPost, "/manifest/validate",
		`{"version":"1.0","runner":"client-static","entry":"index.html"}`)

	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, true, body["valid"])
}

func TestValidateManifestReportsIssues(t *testing.T) {
	app := fiber.New()
	h := &CapsuleHandler{}
	app.Post("/manifest/validate", h.ValidateManifest)

	status, body := doJSON(t, app, fiber.MethodPost, "/manifest/validate", `{"runner":"html"}`)

	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, false, body["valid"])
}

type fakeCapsuleLookup struct {
	ownerID     string
	contentHash string
	manifestRaw []byte
	found       bool
}

func (f *fakeCapsuleLookup) GetCapsule(ctx context.Context, capsuleID string) (string, string, []byte, bool, error) {
	return f.ownerID, f.contentHash, f.manifestRaw, f.found, nil
}

type handlerFakeBlobs struct {
	objects map[string][]byte
}

func (f *handlerFakeBlobs) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	if f.objects == nil {
		f.objects = map[string][]byte{}
	}

	f.objects[key] = b

	return nil
}

func (f *handlerFakeBlobs) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	b, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}

	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *handlerFakeBlobs) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *handlerFakeBlobs) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func TestGetCapsuleManifestFallsBackToDBRow(t *testing.T) {
	manifestRaw := []byte(`{"version":"1.0","runner":"html","entry":"index.html"}`)

	app := fiber.New()
	h := &CapsuleHandler{
		Capsules: &fakeCapsuleLookup{ownerID: "u1", contentHash: "hash1", manifestRaw: manifestRaw, found: true},
		Blobs:    &handlerFakeBlobs{}, // no blob at capsules/hash1/manifest.json
	}
	app.Get("/capsules/:id/manifest", h.GetManifest)

	req := httptest.NewRequest(fiber.MethodGet, "/capsules/c1/manifest", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, manifestRaw, body)
}

func TestGetCapsuleManifestPrefersBlob(t *testing.T) {
	blobManifest := []byte(`{"version":"2.0"}`)

	blobs := &handlerFakeBlobs{objects: map[string][]byte{"capsules/hash1/manifest.json": blobManifest}}

	app := fiber.New()
	h := &CapsuleHandler{
		Capsules: &fakeCapsuleLookup{ownerID: "u1", contentHash: "hash1", manifestRaw: []byte(`{"version":"1.0"}`), found: true},
		Blobs:    blobs,
	}
	app.Get("/capsules/:id/manifest", h.GetManifest)

	req := httptest.NewRequest(fiber.MethodGet, "/capsules/c1/manifest", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, blobManifest, body)
}

type fakeKVCache struct {
	values map[string]string
}

func (f *fakeKVCache) Get(ctx context.Context, key string) (string, error) { return f.values[key], nil }
func (f *fakeKVCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}
func (f *fakeKVCache) Incr(ctx context.Context, key string) (int64, error)              { return 0, nil }
func (f *fakeKVCache) Expire(ctx context.Context, key string, ttl time.Duration) error  { return nil }

type fakeManifestReader struct {
	manifestJSON string
	found        bool
}

func (f *fakeManifestReader) ManifestJSON(ctx context.Context, artifactID string) (string, bool, error) {
	return f.manifestJSON, f.found, nil
}

func TestGetArtifactManifestPrefersKV(t *testing.T) {
	app := fiber.New()
	h := &ArtifactHandler{
		Cache:     &fakeKVCache{values: map[string]string{"artifact-manifest:a1": `{"from":"kv"}`}},
		Manifests: &fakeManifestReader{manifestJSON: `{"from":"db"}`, found: true},
	}
	app.Get("/artifacts/:id/manifest", h.GetManifest)

	status, body := doJSON(t, app, fiber.MethodGet, "/artifacts/a1/manifest", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "kv", body["from"])
}

func TestGetArtifactManifestFallsBackToDB(t *testing.T) {
	app := fiber.New()
	h := &ArtifactHandler{
		Cache:     &fakeKVCache{values: map[string]string{}},
		Manifests: &fakeManifestReader{manifestJSON: `{"from":"db"}`, found: true},
	}
	app.Get("/artifacts/:id/manifest", h.GetManifest)

	status, body := doJSON(t, app, fiber.MethodGet, "/artifacts/a1/manifest", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "db", body["from"])
}

func TestGetArtifactManifestNotFound(t *testing.T) {
	app := fiber.New()
	h := &ArtifactHandler{
		Cache:     &fakeKVCache{values: map[string]string{}},
		Manifests: &fakeManifestReader{},
	}
	app.Get("/artifacts/:id/manifest", h.GetManifest)

	status, _ := doJSON(t, app, fiber.MethodGet, "/artifacts/a1/manifest", "")
	require.Equal(t, fiber.StatusNotFound, status)
}

type recordingFeedStore struct {
	tag      string
	authorID string
	posts    []feed.Post
}

func (f *recordingFeedStore) FetchLatest(ctx context.Context, limit, offset int) ([]feed.Post, error) {
	return f.posts, nil
}
func (f *recordingFeedStore) FetchFollowing(ctx context.Context, viewerID string, limit, offset int) ([]feed.Post, error) {
	return f.posts, nil
}
func (f *recordingFeedStore) FetchByTagsOrQuery(ctx context.Context, tag, query string, limit, offset int) ([]feed.Post, error) {
	f.tag = tag
	return f.posts, nil
}
func (f *recordingFeedStore) FetchByAuthor(ctx context.Context, authorID string, limit, offset int) ([]feed.Post, error) {
	f.authorID = authorID
	return f.posts, nil
}
func (f *recordingFeedStore) FetchForYouCandidates(ctx context.Context, limit int) ([]feed.Post, error) {
	return f.posts, nil
}
func (f *recordingFeedStore) Aggregates(ctx context.Context, postIDs []string) (map[string]domainfeed.PostStats, error) {
	return map[string]domainfeed.PostStats{}, nil
}
func (f *recordingFeedStore) AuthorsMeta(ctx context.Context, authorIDs []string) (map[string]feed.AuthorMeta, error) {
	return map[string]feed.AuthorMeta{}, nil
}
func (f *recordingFeedStore) LikedByViewer(ctx context.Context, viewerID string, postIDs []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}
func (f *recordingFeedStore) FollowingAuthors(ctx context.Context, viewerID string, authorIDs []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func TestFeedListRejectsInvalidPagination(t *testing.T) {
	app := fiber.New()
	h := &FeedHandler{Lister: feed.New(&recordingFeedStore{}, nil, false, nil)}
	app.Get("/posts", h.List)

	status, body := doJSON(t, app, fiber.MethodGet, "/posts?limit=abc", "")
	require.Equal(t, fiber.StatusBadRequest, status)
	require.NotEmpty(t, body["code"])

	status, _ = doJSON(t, app, fiber.MethodGet, "/posts?offset=-1", "")
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestFeedListForwardsTagsAndUserID(t *testing.T) {
	store := &recordingFeedStore{}

	app := fiber.New()
	h := &FeedHandler{Lister: feed.New(store, nil, false, nil)}
	app.Get("/posts", h.List)

	status, _ := doJSON(t, app, fiber.MethodGet, "/posts?mode=tags&tags=games", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "games", store.tag)

	status, _ = doJSON(t, app, fiber.MethodGet, "/posts?userId=author-1", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "author-1", store.authorID)
}

type handlerFakeRunStore struct {
	owners    map[string]string
	capsules  map[string]string
	completed []string
	durations []int64
}

func (f *handlerFakeRunStore) FindRun(ctx context.Context, runID string) (runsession.RunRef, bool, error) {
	owner, ok := f.owners[runID]
	if !ok {
		return runsession.RunRef{}, false, nil
	}

	return runsession.RunRef{OwnerUserID: owner, CapsuleID: f.capsules[runID]}, true, nil
}

func (f *handlerFakeRunStore) CountActiveRuns(ctx context.Context, userID string, sinceMs int64) (int64, error) {
	return 0, nil
}

func (f *handlerFakeRunStore) CountRunsThisMonth(ctx context.Context, userID string, startOfMonthMs int64) (int64, error) {
	return 0, nil
}

func (f *handlerFakeRunStore) InsertRun(ctx context.Context, run runsession.Run) error { return nil }

func (f *handlerFakeRunStore) CompleteRun(ctx context.Context, runID, status string, durationMs int64, errorMessage string) error {
	f.completed = append(f.completed, status+":"+errorMessage)
	f.durations = append(f.durations, durationMs)

	return nil
}

func (f *handlerFakeRunStore) AppendLogs(ctx context.Context, runID string, entries []runsession.LogEntry) error {
	return nil
}

func TestCompleteRunBudgetExceededOverHTTP(t *testing.T) {
	store := &handlerFakeRunStore{
		owners:   map[string]string{"r-long": "u1"},
		capsules: map[string]string{"r-long": "c1"},
	}

	app := fiber.New()
	h := &RunHandler{Manager: runsession.New(store, nil, nil, 2, 5000, func() int64 { return 0 })}
	app.Post("/runs/complete", withTestClaims("u1"), nethttp.WithBody(new(CompleteRunInput), h.Complete))

	status, body := doJSON(t, app, fiber.MethodPost, "/runs/complete",
		`{"runId":"r-long","capsuleId":"c1","durationMs":20000}`)

	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "BUDGET_EXCEEDED", body["code"])
	require.Contains(t, store.completed, "failed:runtime_budget_exceeded")
	require.Contains(t, store.durations, int64(5000))
}

func TestCompleteRunCapsuleMismatchOverHTTP(t *testing.T) {
	store := &handlerFakeRunStore{
		owners:   map[string]string{"r1": "u1"},
		capsules: map[string]string{"r1": "c1"},
	}

	app := fiber.New()
	h := &RunHandler{Manager: runsession.New(store, nil, nil, 2, 60000, func() int64 { return 0 })}
	app.Post("/runs/complete", withTestClaims("u1"), nethttp.WithBody(new(CompleteRunInput), h.Complete))

	status, body := doJSON(t, app, fiber.MethodPost, "/runs/complete",
		`{"runId":"r1","capsuleId":"c-wrong","durationMs":100}`)

	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "CAPSULE_MISMATCH", body["code"])
}
