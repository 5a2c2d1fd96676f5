package artifactcompiler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/artifact"
	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

type fakeBundles struct {
	files    []capsule.BundleFile
	manifest capsule.Manifest
	err      error
}

func (f *fakeBundles) LoadBundle(ctx context.Context, capsuleID string) ([]capsule.BundleFile, capsule.Manifest, error) {
	return f.files, f.manifest, f.err
}

type fakeStore struct {
	version      int
	requests     []artifact.Request
	results      []artifact.Result
	statuses     map[string]artifact.Status
	lastReq      artifact.Request
	lastRes      artifact.Result
	hasLastFlush bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{statuses: map[string]artifact.Status{}}
}

func (f *fakeStore) NextVersion(ctx context.Context, artifactID string) (int, error) {
	f.version++
	return f.version, nil
}

func (f *fakeStore) SaveRequest(ctx context.Context, req artifact.Request) error {
	f.requests = append(f.requests, req)
	f.lastReq = req
	f.hasLastFlush = true

	return nil
}

func (f *fakeStore) SaveResult(ctx context.Context, res artifact.Result) error {
	f.results = append(f.results, res)
	f.lastRes = res

	return nil
}

func (f *fakeStore) SetStatus(ctx context.Context, artifactID string, status artifact.Status) error {
	f.statuses[artifactID] = status
	return nil
}

func (f *fakeStore) LastCompile(ctx context.Context, artifactID string) (artifact.Request, artifact.Result, bool, error) {
	return f.lastReq, f.lastRes, f.hasLastFlush, nil
}

type fakeBlobs struct {
	written map[string][]byte
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{written: map[string][]byte{}} }

func (f *fakeBlobs) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	f.written[key] = b

	return nil
}

func (f *fakeBlobs) Get(ctx context.Context, key string) (io.ReadCloser, error) { return nil, nil }
func (f *fakeBlobs) Delete(ctx context.Context, key string) error               { delete(f.written, key); return nil }
func (f *fakeBlobs) Exists(ctx context.Context, key string) (bool, error)       { return false, nil }

type fakeCache struct {
	set map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{set: map[string]string{}} }

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) { return f.set[key], nil }
func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.set[key] = value
	return nil
}
func (f *fakeCache) Incr(ctx context.Context, key string) (int64, error)              { return 0, nil }
func (f *fakeCache) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }

func testLogger() *mlog.GoLogger { return &mlog.GoLogger{Level: mlog.InfoLevel} }

func TestCompileHTMLWritesBundleAndManifest(t *testing.T) {
	bundles := &fakeBundles{
		files: []capsule.BundleFile{
			{Path: "index.html", Content: []byte("<html><head></head><body>hi</body></html>")},
		},
		manifest: capsule.Manifest{Runner: "html", Entry: "index.html"},
	}
	store := newFakeStore()
	blobs := newFakeBlobs()
	cache := newFakeCache()

	c := New(nil, bundles, store, blobs, cache, nil, testLogger())

	res, err := c.Compile(context.Background(), artifact.Request{ArtifactID: "art1", CapsuleID: "cap1", RequestedBy: "u1", RequestedAt: time.Unix(1, 0)})
	require.NoError(t, err)
	require.Equal(t, artifact.StatusActive, res.Status)
	require.Equal(t, 1, res.Version)
	require.NotEmpty(t, res.BundleDigest)
	require.Equal(t, artifact.StatusActive, store.statuses["art1"])
	require.Contains(t, blobs.written, "artifacts/art1/bundle.js")
	require.Contains(t, blobs.written, "artifacts/art1/v1/runtime-manifest.json")
	require.Contains(t, blobs.written, "artifacts/art1/manifest.json")
	require.Contains(t, cache.set, "artifact-manifest:art1")
}

func TestCompileReactJSXRejectsDisallowedImport(t *testing.T) {
	bundles := &fakeBundles{
		files: []capsule.BundleFile{
			{Path: "index.jsx", Content: []byte("import leftpad from 'left-pad';\nexport default function App() {}")},
		},
		manifest: capsule.Manifest{Runner: "react-jsx", Entry: "index.jsx"},
	}
	store := newFakeStore()

	c := New(nil, bundles, store, newFakeBlobs(), newFakeCache(), nil, testLogger())

	res, err := c.Compile(context.Background(), artifact.Request{ArtifactID: "art2", CapsuleID: "cap2", RequestedAt: time.Unix(1, 0)})
	require.NoError(t, err)
	require.Equal(t, artifact.StatusFailed, res.Status)
	require.NotEmpty(t, res.Error)
	require.NotContains(t, store.statuses, "art2", "a failed compile must not change the artifact's lifecycle status")
}

func TestCompileReactJSXBundlesReachableFilesOnly(t *testing.T) {
	bundles := &fakeBundles{
		files: []capsule.BundleFile{
			{Path: "index.jsx", Content: []byte("import './used.js';\nexport default function App() {}")},
			{Path: "used.js", Content: []byte("export const x = 1;")},
			{Path: "dead.js", Content: []byte("export const y = 2;")},
		},
		manifest: capsule.Manifest{Runner: "react-jsx", Entry: "index.jsx"},
	}
	store := newFakeStore()
	blobs := newFakeBlobs()

	c := New(nil, bundles, store, blobs, newFakeCache(), nil, testLogger())

	res, err := c.Compile(context.Background(), artifact.Request{ArtifactID: "art3", CapsuleID: "cap3", RequestedAt: time.Unix(1, 0)})
	require.NoError(t, err)
	require.Equal(t, artifact.StatusActive, res.Status)

	bundle := string(blobs.written["artifacts/art3/bundle.js"])
	require.Contains(t, bundle, "used.js")
	require.Contains(t, bundle, "const x = 1")
	require.NotContains(t, bundle, "dead.js")
}

func TestInspectReturnsLastCompile(t *testing.T) {
	store := newFakeStore()
	store.lastReq = artifact.Request{ArtifactID: "art4", CapsuleID: "cap4"}
	store.lastRes = artifact.Result{ArtifactID: "art4", Version: 3, Status: artifact.StatusActive}
	store.hasLastFlush = true

	c := New(nil, &fakeBundles{}, store, newFakeBlobs(), newFakeCache(), nil, testLogger())

	req, res, found, err := c.Inspect(context.Background(), "art4")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "cap4", req.CapsuleID)
	require.Equal(t, 3, res.Version)
}

func TestCompileFailsOnUnresolvedRunner(t *testing.T) {
	bundles := &fakeBundles{manifest: capsule.Manifest{Runner: "wasm", Entry: "main.wasm"}}
	store := newFakeStore()

	c := New(nil, bundles, store, newFakeBlobs(), newFakeCache(), nil, testLogger())

	res, err := c.Compile(context.Background(), artifact.Request{ArtifactID: "art5", CapsuleID: "cap5", RequestedAt: time.Unix(1, 0)})
	require.NoError(t, err)
	require.Equal(t, artifact.StatusFailed, res.Status)
}
