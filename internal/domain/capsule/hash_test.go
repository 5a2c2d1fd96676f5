package capsule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentHashIsOrderIndependent(t *testing.T) {
	a := BundleFile{Path: "a.js", Content: []byte("alpha")}
	b := BundleFile{Path: "b.js", Content: []byte("beta")}

	hashAB := ContentHash([]BundleFile{a, b})
	hashBA := ContentHash([]BundleFile{b, a})

	require.Equal(t, hashAB, hashBA)
}

func TestContentHashChangesWithContent(t *testing.T) {
	base := []BundleFile{{Path: "a.js", Content: []byte("alpha")}}
	changed := []BundleFile{{Path: "a.js", Content: []byte("alphabeta")}}

	require.NotEqual(t, ContentHash(base), ContentHash(changed))
}

func TestContentHashIgnoresPathOfSingleFile(t *testing.T) {
	one := []BundleFile{{Path: "a.js", Content: []byte("same")}}
	two := []BundleFile{{Path: "b.js", Content: []byte("same")}}

	require.Equal(t, ContentHash(one), ContentHash(two))
}

func TestContentHashEmptyBundle(t *testing.T) {
	require.Len(t, ContentHash(nil), 64)
}
