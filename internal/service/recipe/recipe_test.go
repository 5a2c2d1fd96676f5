package recipe

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
)

type fakeCapsules struct {
	ownerID      string
	manifestRaw  []byte
	found        bool
}

func (f *fakeCapsules) GetCapsule(ctx context.Context, capsuleID string) (string, string, []byte, bool, error) {
	return f.ownerID, "hash", f.manifestRaw, f.found, nil
}

func manifestWithParams(params []capsule.ParamSpec) []byte {
	raw, _ := json.Marshal(capsule.Manifest{Version: "1.0", Runner: "html", Entry: "index.html", Params: params})
	return raw
}

type fakeStore struct {
	recipes map[string]Recipe
}

func newFakeStore() *fakeStore { return &fakeStore{recipes: map[string]Recipe{}} }

func (f *fakeStore) CountForCapsule(ctx context.Context, capsuleID string) (int64, error) {
	var n int64
	for _, r := range f.recipes {
		if r.CapsuleID == capsuleID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Insert(ctx context.Context, r Recipe) error {
	f.recipes[r.ID] = r
	return nil
}

func (f *fakeStore) Get(ctx context.Context, recipeID string) (Recipe, bool, error) {
	r, ok := f.recipes[recipeID]
	return r, ok, nil
}

func (f *fakeStore) Update(ctx context.Context, r Recipe) error {
	f.recipes[r.ID] = r
	return nil
}

func (f *fakeStore) ListForCapsule(ctx context.Context, capsuleID string) ([]Recipe, error) {
	var out []Recipe
	for _, r := range f.recipes {
		if r.CapsuleID == capsuleID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestService(capsules *fakeCapsules, store *fakeStore) *Service {
	seq := 0
	newID := func() string {
		seq++
		return "recipe-id"
	}
	return New(store, capsules, newID, func() time.Time { return time.Unix(0, 0) })
}

func TestCreateFailsWhenNoParamMatchesManifest(t *testing.T) {
	capsules := &fakeCapsules{found: true, manifestRaw: manifestWithParams([]capsule.ParamSpec{
		{Key: "speed", Type: "number"},
	})}
	s := newTestService(capsules, newFakeStore())

	_, err := s.Create(context.Background(), "c1", "u1", "preset", map[string]any{"unrelated": 1})
	require.Error(t, err)
}

func TestCreateCoercesAndInserts(t *testing.T) {
	capsules := &fakeCapsules{found: true, manifestRaw: manifestWithParams([]capsule.ParamSpec{
		{Key: "speed", Type: "number", Min: floatPtr(0), Max: floatPtr(10)},
	})}
	store := newFakeStore()
	s := newTestService(capsules, store)

	r, err := s.Create(context.Background(), "c1", "u1", "preset", map[string]any{"speed": 99.0})
	require.NoError(t, err)
	require.Equal(t, 10.0, r.Params["speed"])
	require.Len(t, store.recipes, 1)
}

func floatPtr(f float64) *float64 { return &f }

func TestCreateRejectsOnceCapReached(t *testing.T) {
	capsules := &fakeCapsules{found: true, manifestRaw: manifestWithParams([]capsule.ParamSpec{
		{Key: "speed", Type: "number"},
	})}
	store := newFakeStore()
	for i := 0; i < 100; i++ {
		id := "r" + strconv.Itoa(i)
		store.recipes[id] = Recipe{ID: id, CapsuleID: "c1"}
	}
	s := newTestService(capsules, store)

	_, err := s.Create(context.Background(), "c1", "u1", "preset", map[string]any{"speed": 1.0})
	require.Error(t, err)
}

func TestUpdateAllowedByCapsuleOwner(t *testing.T) {
	capsules := &fakeCapsules{found: true, ownerID: "owner", manifestRaw: manifestWithParams([]capsule.ParamSpec{
		{Key: "speed", Type: "number"},
	})}
	store := newFakeStore()
	store.recipes["r1"] = Recipe{ID: "r1", CapsuleID: "c1", AuthorID: "author"}
	s := newTestService(capsules, store)

	_, err := s.Update(context.Background(), "r1", "owner", false, "", map[string]any{"speed": 5.0})
	require.NoError(t, err)
}

func TestUpdateForbidsUnrelatedActor(t *testing.T) {
	capsules := &fakeCapsules{found: true, ownerID: "owner", manifestRaw: manifestWithParams([]capsule.ParamSpec{
		{Key: "speed", Type: "number"},
	})}
	store := newFakeStore()
	store.recipes["r1"] = Recipe{ID: "r1", CapsuleID: "c1", AuthorID: "author"}
	s := newTestService(capsules, store)

	_, err := s.Update(context.Background(), "r1", "stranger", false, "", map[string]any{"speed": 5.0})
	require.Error(t, err)
}

func TestUpdateAllowedForModerator(t *testing.T) {
	capsules := &fakeCapsules{found: true, ownerID: "owner", manifestRaw: manifestWithParams([]capsule.ParamSpec{
		{Key: "speed", Type: "number"},
	})}
	store := newFakeStore()
	store.recipes["r1"] = Recipe{ID: "r1", CapsuleID: "c1", AuthorID: "author"}
	s := newTestService(capsules, store)

	_, err := s.Update(context.Background(), "r1", "mod1", true, "renamed", nil)
	require.NoError(t, err)
	require.Equal(t, "renamed", store.recipes["r1"].Name)
}
