package remix

import (
	"errors"
	"testing"
)

func lookupFromMap(parents map[string]string) ParentLookup {
	return func(capsuleID string) (string, bool, error) {
		p, ok := parents[capsuleID]
		return p, ok, nil
	}
}

func TestAncestryWalksToRoot(t *testing.T) {
	chain, err := Ancestry("c3", lookupFromMap(map[string]string{
		"c3": "c2",
		"c2": "c1",
	}))
	if err != nil {
		t.Fatalf("ancestry: %v", err)
	}

	if len(chain) != 2 || chain[0] != "c2" || chain[1] != "c1" {
		t.Fatalf("got chain %v", chain)
	}
}

func TestAncestryOfNonRemixIsEmpty(t *testing.T) {
	chain, err := Ancestry("c1", lookupFromMap(nil))
	if err != nil || len(chain) != 0 {
		t.Fatalf("got %v, %v", chain, err)
	}
}

func TestAncestryDetectsCycle(t *testing.T) {
	_, err := Ancestry("c1", lookupFromMap(map[string]string{
		"c1": "c2",
		"c2": "c3",
		"c3": "c1",
	}))
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestAncestryDetectsSelfParent(t *testing.T) {
	_, err := Ancestry("c1", lookupFromMap(map[string]string{"c1": "c1"}))
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}
