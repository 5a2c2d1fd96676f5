// Package capsule implements the bundle content-hashing, manifest
// validation, and entry sanitization rules of the publish pipeline.
package capsule

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// BundleFile is one file of an uploaded bundle, keyed by its path within the
// bundle (e.g. "index.jsx", "assets/logo.png").
type BundleFile struct {
	Path    string
	Content []byte
}

// ContentHash computes the deterministic content hash of a bundle: a
// SHA-256 over the concatenation of each file's own SHA-256 digest, with
// files sorted by path first. Sorting makes the hash independent of upload
// order, so hash(A∪B) == hash(B∪A) regardless of how the files arrived.
//
// Each per-file digest is computed over the file's raw bytes exactly as
// received from the upload stream - never over a decoded/re-encoded string -
// so a byte-identical re-upload always yields the same hash, while the same
// text stored under two different encodings yields two different hashes.
// File paths only fix the order of the digests; they are not hashed
// themselves.
func ContentHash(files []BundleFile) string {
	sorted := make([]BundleFile, len(files))
	copy(sorted, files)

	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()

	for _, f := range sorted {
		fileDigest := sha256.Sum256(f.Content)
		h.Write(fileDigest[:])
	}

	return hex.EncodeToString(h.Sum(nil))
}
