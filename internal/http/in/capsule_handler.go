package in

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/artifact"
	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
	"github.com/Braden-sui/Vibecodr-sub002/internal/ports"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/artifactcompiler"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/ingestor"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
	nethttp "github.com/Braden-sui/Vibecodr-sub002/pkg/net/http"
)

// CapsuleLookup reads a capsule's own persisted state, for the read-only
// routes that don't go through the Bundle Ingestor's write path.
type CapsuleLookup interface {
	GetCapsule(ctx context.Context, capsuleID string) (ownerID, contentHash string, manifestRaw []byte, found bool, err error)
}

// PublishBundleInput is the request body for POST /capsules/publish: a manifest plus
// a path -> base64 file-content map, the JSON-API shape for a bundle upload
// given this stack carries no multipart-form middleware. RemixOfCapsuleID,
// when set, publishes the new capsule as a remix of an existing one;
// RemixOfPostID optionally names the post the remix was started from.
type PublishBundleInput struct {
	Manifest         json.RawMessage   `json:"manifest" validate:"required"`
	Files            map[string]string `json:"files" validate:"required"`
	RemixOfCapsuleID string            `json:"remixOfCapsuleId,omitempty"`
	RemixOfPostID    string            `json:"remixOfPostId,omitempty"`
}

// CapsuleHandler serves the capsule/bundle routes, backed by the Bundle
// Ingestor for publish and the Artifact Compiler Coordinator for manual
// recompile.
type CapsuleHandler struct {
	Ingestor *ingestor.Ingestor
	Compiler *artifactcompiler.Coordinator
	Capsules CapsuleLookup
	Blobs    ports.BlobStore
}

// PublishBundle handles POST /capsules/publish.
func (h *CapsuleHandler) PublishBundle(p any, c *fiber.Ctx) error {
	in := p.(*PublishBundleInput)

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	var manifest capsule.Manifest
	if err := json.Unmarshal(in.Manifest, &manifest); err != nil {
		return nethttp.WithError(c, apperr.ValidationError{EntityType: "capsule", Code: "invalid_manifest", Message: err.Error()})
	}

	files := make([]capsule.BundleFile, 0, len(in.Files))

	for fpath, encoded := range in.Files {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nethttp.WithError(c, apperr.ValidationError{EntityType: "capsule", Code: "invalid_file_encoding", Message: err.Error()})
		}

		files = append(files, capsule.BundleFile{Path: fpath, Content: raw})
	}

	var remixOf *ingestor.RemixRef
	if in.RemixOfCapsuleID != "" {
		remixOf = &ingestor.RemixRef{ParentCapsuleID: in.RemixOfCapsuleID, ParentPostID: in.RemixOfPostID}
	}

	result, err := h.Ingestor.Publish(c.UserContext(), userID, files, in.Manifest, manifest, remixOf)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"capsuleId":   result.CapsuleID,
		"contentHash": result.ContentHash,
		"warnings":    result.Warnings,
		"artifact":    fiber.Map{"id": result.ArtifactID},
	})
}

// GetByID handles GET /capsules/:id.
func (h *CapsuleHandler) GetByID(c *fiber.Ctx) error {
	capsuleID := c.Params("id")

	ownerID, contentHash, manifestRaw, found, err := h.Capsules.GetCapsule(c.UserContext(), capsuleID)
	if err != nil {
		return nethttp.WithError(c, apperr.ValidateInternalError(err, "capsule"))
	}

	if !found {
		return nethttp.WithError(c, apperr.NotFoundError{EntityType: "capsule", Code: "not_found", Message: "capsule not found"})
	}

	var manifest json.RawMessage = manifestRaw

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":          capsuleID,
		"ownerId":     ownerID,
		"contentHash": contentHash,
		"manifest":    manifest,
	})
}

// ValidateManifest handles POST /manifest/validate: a stateless, public
// schema check that lets an author iterate on a manifest before upload.
func (h *CapsuleHandler) ValidateManifest(c *fiber.Ctx) error {
	var manifest capsule.Manifest
	if err := c.BodyParser(&manifest); err != nil {
		return nethttp.WithError(c, apperr.ValidationError{EntityType: "capsule", Code: "invalid_manifest", Message: err.Error()})
	}

	issues := capsule.ValidateManifest(manifest)
	if len(issues) == 0 {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"valid": true})
	}

	details := make(map[string]string, len(issues))
	for _, iss := range issues {
		details[iss.Path] = iss.Message
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"valid": false, "issues": details})
}

// GetManifest handles GET /capsules/:id/manifest: the stored manifest blob,
// falling back to the manifest row persisted at publish time when the blob
// read fails.
func (h *CapsuleHandler) GetManifest(c *fiber.Ctx) error {
	capsuleID := c.Params("id")

	_, contentHash, manifestRaw, found, err := h.Capsules.GetCapsule(c.UserContext(), capsuleID)
	if err != nil {
		return nethttp.WithError(c, apperr.ValidateInternalError(err, "capsule"))
	}

	if !found {
		return nethttp.WithError(c, apperr.NotFoundError{EntityType: "capsule", Code: "not_found", Message: "capsule not found"})
	}

	body := manifestRaw

	if rc, err := h.Blobs.Get(c.UserContext(), "capsules/"+contentHash+"/manifest.json"); err == nil {
		defer rc.Close()

		if b, err := io.ReadAll(rc); err == nil {
			body = b
		}
	}

	if len(body) == 0 {
		return nethttp.WithError(c, apperr.NotFoundError{EntityType: "capsule", Code: "not_found", Message: "manifest missing from blob store and database"})
	}

	c.Set(fiber.HeaderContentType, "application/json")

	return c.Status(fiber.StatusOK).Send(body)
}

// GetBundle handles GET /capsules/:id/bundle: streams the manifest entry
// file with an immutable Cache-Control (content-addressed by hash, so the
// bytes at this key never change) and a strict CSP, since this is
// unsanitized source served straight from the bundle, not a compiled
// artifact.
func (h *CapsuleHandler) GetBundle(c *fiber.Ctx) error {
	capsuleID := c.Params("id")

	_, contentHash, manifestRaw, found, err := h.Capsules.GetCapsule(c.UserContext(), capsuleID)
	if err != nil {
		return nethttp.WithError(c, apperr.ValidateInternalError(err, "capsule"))
	}

	if !found {
		return nethttp.WithError(c, apperr.NotFoundError{EntityType: "capsule", Code: "not_found", Message: "capsule not found"})
	}

	var manifest capsule.Manifest
	if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
		return nethttp.WithError(c, apperr.ValidateInternalError(err, "capsule"))
	}

	rc, err := h.Blobs.Get(c.UserContext(), "capsules/"+contentHash+"/"+manifest.Entry)
	if err != nil {
		return nethttp.WithError(c, apperr.NotFoundError{EntityType: "capsule", Code: "not_found", Message: "entry file missing from blob store"})
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nethttp.WithError(c, apperr.ValidateInternalError(err, "capsule"))
	}

	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	c.Set(fiber.HeaderContentSecurityPolicy, "script-src 'none'; connect-src 'none'")

	return c.Status(fiber.StatusOK).Send(body)
}

// CompileDraft handles POST /capsules/:id/compile-draft: a manual recompile
// of the capsule's default artifact, synchronous so the caller gets the
// result in the response rather than having to poll /inspect.
func (h *CapsuleHandler) CompileDraft(c *fiber.Ctx) error {
	capsuleID := c.Params("id")
	if capsuleID == "" {
		return nethttp.WithError(c, apperr.ValidationError{EntityType: "capsule", Code: "missing_parameter", Message: "capsule id is required"})
	}

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	result, err := h.Compiler.Compile(c.UserContext(), artifact.Request{
		ArtifactID:  capsuleID,
		CapsuleID:   capsuleID,
		RequestedBy: userID,
		RequestedAt: time.Now(),
	})
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
