// Package ingestor implements the Bundle Ingestor: the
// "publish bundle" SAGA that hashes, sanitizes, persists, and storage-
// accounts an uploaded capsule, using a SAGA-shaped Create-then-compensate
// method sequence.
package ingestor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/artifact"
	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/remix"
	"github.com/Braden-sui/Vibecodr-sub002/internal/ports"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/storageaccount"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
)

// CapsuleRow is the persisted shape of a newly published capsule.
type CapsuleRow struct {
	ID          string
	OwnerID     string
	ContentHash string
	ManifestRaw []byte
}

// AssetRow is one file of a published capsule.
type AssetRow struct {
	ID        string
	CapsuleID string
	Key       string
	Size      int64
}

// RemixRef names the parent a new capsule is being published as a remix of.
type RemixRef struct {
	ParentCapsuleID string
	ParentPostID    string
}

// Store is the relational persistence contract the ingestor drives.
type Store interface {
	// InsertCapsule inserts the capsule row and its asset rows atomically.
	InsertCapsule(ctx context.Context, c CapsuleRow, assets []AssetRow) error
	// DeleteCapsule removes a capsule row, its assets, and its remix edge
	// (the SAGA compensation step on a storage-reservation conflict).
	DeleteCapsule(ctx context.Context, capsuleID string) error
	// CountCapsulesByContentHash reports how many capsule rows (across all
	// users) still reference contentHash, so blob deletion can be skipped
	// when another capsule shares the same bytes.
	CountCapsulesByContentHash(ctx context.Context, contentHash string) (int64, error)
	// CapsuleExists reports whether a capsule row exists, used to validate
	// a remix's parent before any blob is written.
	CapsuleExists(ctx context.Context, capsuleID string) (bool, error)
	// RemixParentOf resolves a capsule's remix parent, ok=false when the
	// capsule is not a remix.
	RemixParentOf(ctx context.Context, capsuleID string) (parentCapsuleID string, ok bool, err error)
	// InsertRemix records the child -> parent remix edge.
	InsertRemix(ctx context.Context, childCapsuleID, parentCapsuleID, parentPostID string) error
}

// IDGenerator produces a new unique id; injected so tests are deterministic.
type IDGenerator func() string

// ArtifactCompiler kicks off the draft compile a newly published capsule
// gets. The publish transaction never blocks on it:
// a compile failure surfaces later via GET /inspect, not as a publish error.
type ArtifactCompiler interface {
	Compile(ctx context.Context, req artifact.Request) (artifact.Result, error)
}

// Ingestor wires the blob store, relational store, and storage accountant
// into the publish-bundle SAGA.
type Ingestor struct {
	blobs      ports.BlobStore
	store      Store
	account    *storageaccount.Accountant
	compiler   ArtifactCompiler
	classifier ports.SafetyClassifier
	newID      IDGenerator
}

// New builds an Ingestor. compiler may be nil, in which case publish skips
// the async draft-compile kickoff entirely (used by tests that don't care
// about the compile pipeline). classifier may be nil to skip the content
// safety check.
func New(blobs ports.BlobStore, store Store, account *storageaccount.Accountant, compiler ArtifactCompiler, classifier ports.SafetyClassifier, newID IDGenerator) *Ingestor {
	return &Ingestor{blobs: blobs, store: store, account: account, compiler: compiler, classifier: classifier, newID: newID}
}

// PublishResult is returned by Publish on success.
type PublishResult struct {
	CapsuleID   string
	ArtifactID  string
	ContentHash string
	Warnings    []string
}

// Publish runs the publish persistence protocol: hash, upload blobs,
// insert rows, reserve storage (compensating on conflict). remixOf, when
// non-nil, records the new capsule as a remix of an existing one after its
// ancestry has been checked for cycles.
func (in *Ingestor) Publish(ctx context.Context, ownerID string, files []capsule.BundleFile, manifestRaw []byte, manifest capsule.Manifest, remixOf *RemixRef) (*PublishResult, error) {
	if issues := capsule.ValidateManifest(manifest); len(issues) > 0 {
		details := make(map[string]string, len(issues))
		for _, iss := range issues {
			details[iss.Path] = iss.Message
		}

		return nil, apperr.ValidationError{
			EntityType: "capsule",
			Code:       "invalid_manifest",
			Title:      "Invalid manifest",
			Message:    "manifest failed schema validation",
			Details:    details,
		}
	}

	runner, err := capsule.ResolveRunner(manifest.Runner, manifest.Entry)
	if err != nil {
		return nil, apperr.ValidationError{EntityType: "capsule", Code: "unsupported_runner", Message: err.Error()}
	}

	if remixOf != nil {
		if err := in.checkRemixParent(ctx, remixOf.ParentCapsuleID); err != nil {
			return nil, err
		}
	}

	var warnings []string

	// The content hash is computed over the raw upload bytes exactly as
	// received, before any sanitization, per capsule.ContentHash's
	// order-independence contract.
	contentHash := capsule.ContentHash(files)

	storedFiles := make([]capsule.BundleFile, len(files))
	copy(storedFiles, files)

	if runner == capsule.RunnerHTML {
		for i, f := range storedFiles {
			if path.Clean(f.Path) != path.Clean(manifest.Entry) {
				continue
			}

			sanitized, err := capsule.SanitizeHTML(f.Content, fmt.Sprintf("/capsules/%s/", contentHash))
			if err != nil {
				return nil, apperr.ValidationError{EntityType: "capsule", Code: "entry_oversize", Message: err.Error()}
			}

			storedFiles[i].Content = sanitized
		}
	}

	if in.classifier != nil {
		for _, f := range storedFiles {
			verdict, err := in.classifier.Classify(ctx, contentTypeFor(f.Path), f.Content)
			if err != nil {
				return nil, apperr.ValidateInternalError(err, "capsule")
			}

			if !verdict.Allowed {
				return nil, apperr.ForbiddenError{
					Code:    "SAFETY_BLOCKED",
					Title:   "Forbidden",
					Message: fmt.Sprintf("file %q was blocked by the content safety check: %s", f.Path, verdict.Reason),
				}
			}
		}
	}

	var (
		totalSize int64
		blobKeys  []string
	)

	assets := make([]AssetRow, 0, len(storedFiles))

	for _, f := range storedFiles {
		key := fmt.Sprintf("capsules/%s/%s", contentHash, strings.TrimPrefix(f.Path, "/"))
		if err := in.blobs.Put(ctx, key, bytes.NewReader(f.Content), int64(len(f.Content)), contentTypeFor(f.Path)); err != nil {
			return nil, apperr.ValidateInternalError(err, "capsule")
		}

		blobKeys = append(blobKeys, key)
		assets = append(assets, AssetRow{ID: in.newID(), Key: f.Path, Size: int64(len(f.Content))})
		totalSize += int64(len(f.Content))
	}

	manifestKey := fmt.Sprintf("capsules/%s/manifest.json", contentHash)
	if err := in.blobs.Put(ctx, manifestKey, bytes.NewReader(manifestRaw), int64(len(manifestRaw)), "application/json"); err != nil {
		return nil, apperr.ValidateInternalError(err, "capsule")
	}

	blobKeys = append(blobKeys, manifestKey)

	descriptor, err := json.Marshal(map[string]any{
		"uploadedAt":  time.Now().UTC().Format(time.RFC3339),
		"totalSize":   totalSize,
		"fileCount":   len(storedFiles),
		"contentHash": contentHash,
		"owner":       ownerID,
	})
	if err != nil {
		return nil, apperr.ValidateInternalError(err, "capsule")
	}

	metadataKey := fmt.Sprintf("capsules/%s/metadata.json", contentHash)
	if err := in.blobs.Put(ctx, metadataKey, bytes.NewReader(descriptor), int64(len(descriptor)), "application/json"); err != nil {
		return nil, apperr.ValidateInternalError(err, "capsule")
	}

	blobKeys = append(blobKeys, metadataKey)

	capsuleID := in.newID()
	for i := range assets {
		assets[i].CapsuleID = capsuleID
	}

	if err := in.store.InsertCapsule(ctx, CapsuleRow{
		ID:          capsuleID,
		OwnerID:     ownerID,
		ContentHash: contentHash,
		ManifestRaw: manifestRaw,
	}, assets); err != nil {
		return nil, apperr.ValidateInternalError(err, "capsule")
	}

	if remixOf != nil {
		if err := in.store.InsertRemix(ctx, capsuleID, remixOf.ParentCapsuleID, remixOf.ParentPostID); err != nil {
			in.compensate(ctx, capsuleID, contentHash, blobKeys, &warnings)
			return nil, apperr.ValidateInternalError(err, "capsule")
		}
	}

	if _, err := in.account.Reserve(ctx, ownerID, totalSize); err != nil {
		in.compensate(ctx, capsuleID, contentHash, blobKeys, &warnings)
		return nil, err
	}

	// A capsule publishes with one default artifact, keyed by the capsule
	// id, draft-compiled asynchronously so the publish response doesn't
	// wait on the bundler; the artifact starts in "draft" and flips to
	// "active" once this compile lands (or stays "draft" on failure,
	// visible via GET /inspect).
	artifactID := capsuleID

	if in.compiler != nil {
		go func() {
			_, _ = in.compiler.Compile(context.Background(), artifact.Request{
				ArtifactID:  artifactID,
				CapsuleID:   capsuleID,
				RequestedBy: ownerID,
				RequestedAt: time.Now(),
			})
		}()
	} else {
		warnings = append(warnings, "draft compile skipped: no compiler configured")
	}

	return &PublishResult{CapsuleID: capsuleID, ArtifactID: artifactID, ContentHash: contentHash, Warnings: warnings}, nil
}

// checkRemixParent verifies the remix parent exists and that its ancestry
// chain terminates, so a corrupt cyclic chain is rejected up front instead
// of looping a later traversal.
func (in *Ingestor) checkRemixParent(ctx context.Context, parentCapsuleID string) error {
	exists, err := in.store.CapsuleExists(ctx, parentCapsuleID)
	if err != nil {
		return apperr.ValidateInternalError(err, "capsule")
	}

	if !exists {
		return apperr.ValidationError{EntityType: "capsule", Code: "REMIX_PARENT_NOT_FOUND", Message: "the capsule being remixed does not exist"}
	}

	if _, err := remix.Ancestry(parentCapsuleID, func(capsuleID string) (string, bool, error) {
		return in.store.RemixParentOf(ctx, capsuleID)
	}); err != nil {
		if errors.Is(err, remix.ErrCycle) {
			return apperr.ValidationError{EntityType: "capsule", Code: "CYCLE", Message: "the remix ancestry of this capsule contains a cycle"}
		}

		return apperr.ValidateInternalError(err, "capsule")
	}

	return nil
}

// compensate rolls the SAGA back after a storage-reservation conflict: the
// capsule row (and via cascade its assets and remix edge) is deleted, and
// the just-written blobs are removed only when no other capsule row still
// references the same content hash.
func (in *Ingestor) compensate(ctx context.Context, capsuleID, contentHash string, blobKeys []string, warnings *[]string) {
	if err := in.store.DeleteCapsule(ctx, capsuleID); err != nil {
		*warnings = append(*warnings, "compensation cleanup failed: "+err.Error())
		return
	}

	remaining, err := in.store.CountCapsulesByContentHash(ctx, contentHash)
	if err != nil {
		*warnings = append(*warnings, "compensation refcount failed, blobs left in place: "+err.Error())
		return
	}

	if remaining > 0 {
		return
	}

	for _, key := range blobKeys {
		if err := in.blobs.Delete(ctx, key); err != nil {
			*warnings = append(*warnings, "compensation blob delete failed for "+key+": "+err.Error())
		}
	}
}

func contentTypeFor(p string) string {
	switch path.Ext(p) {
	case ".html":
		return "text/html"
	case ".js", ".jsx":
		return "application/javascript"
	case ".json":
		return "application/json"
	case ".css":
		return "text/css"
	default:
		return "application/octet-stream"
	}
}
