// Package capsulebundle implements artifactcompiler.BundleSource by
// reassembling a published capsule's bundle files from the blob store,
// keyed the same way internal/service/ingestor wrote them.
package capsulebundle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
	"github.com/Braden-sui/Vibecodr-sub002/internal/ports"
)

// ErrCapsuleNotFound is returned when the requested capsule has no row.
var ErrCapsuleNotFound = errors.New("capsulebundle: capsule not found")

// CapsuleReader is the narrow read this source needs from capsule storage.
type CapsuleReader interface {
	GetCapsule(ctx context.Context, capsuleID string) (ownerID, contentHash string, manifestRaw []byte, found bool, err error)
	ListAssetKeys(ctx context.Context, capsuleID string) ([]string, error)
}

// Source loads a capsule's bundle files and manifest for a compile run.
type Source struct {
	capsules CapsuleReader
	blobs    ports.BlobStore
}

// New builds a Source over capsules and blobs.
func New(capsules CapsuleReader, blobs ports.BlobStore) *Source {
	return &Source{capsules: capsules, blobs: blobs}
}

// LoadBundle implements artifactcompiler.BundleSource.
func (s *Source) LoadBundle(ctx context.Context, capsuleID string) ([]capsule.BundleFile, capsule.Manifest, error) {
	_, contentHash, manifestRaw, found, err := s.capsules.GetCapsule(ctx, capsuleID)
	if err != nil {
		return nil, capsule.Manifest{}, err
	}

	if !found {
		return nil, capsule.Manifest{}, ErrCapsuleNotFound
	}

	var manifest capsule.Manifest
	if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
		return nil, capsule.Manifest{}, err
	}

	keys, err := s.capsules.ListAssetKeys(ctx, capsuleID)
	if err != nil {
		return nil, capsule.Manifest{}, err
	}

	files := make([]capsule.BundleFile, 0, len(keys))

	for _, key := range keys {
		rc, err := s.blobs.Get(ctx, "capsules/"+contentHash+"/"+strings.TrimPrefix(key, "/"))
		if err != nil {
			return nil, capsule.Manifest{}, err
		}

		content, err := io.ReadAll(rc)
		rc.Close()

		if err != nil {
			return nil, capsule.Manifest{}, err
		}

		files = append(files, capsule.BundleFile{Path: key, Content: content})
	}

	return files, manifest, nil
}
