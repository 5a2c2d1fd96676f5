package in

import (
	"context"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/artifact"
	"github.com/Braden-sui/Vibecodr-sub002/internal/ports"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/artifactcompiler"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
	nethttp "github.com/Braden-sui/Vibecodr-sub002/pkg/net/http"
)

// CompileArtifactInput is the request body for POST /compile.
type CompileArtifactInput struct {
	ArtifactID string `json:"artifactId" validate:"required"`
	CapsuleID  string `json:"capsuleId" validate:"required"`
}

// ManifestReader is the relational fallback for runtime manifests: the
// manifest_json the compile pipeline persisted alongside its result.
type ManifestReader interface {
	ManifestJSON(ctx context.Context, artifactID string) (string, bool, error)
}

// ArtifactHandler serves the Artifact Compiler Coordinator's HTTP surface.
// BundleNetworkMode is CAPSULE_BUNDLE_NETWORK_MODE and controls the
// connect-src directive of the bundle response's CSP.
type ArtifactHandler struct {
	Compiler          *artifactcompiler.Coordinator
	Blobs             ports.BlobStore
	Cache             ports.KeyValueCache
	Manifests         ManifestReader
	BundleNetworkMode string
}

// Compile handles POST /compile: enqueues a compile and returns
// immediately with 202 Accepted, the compile itself running in the
// background — matching the async draft-compile kickoff the Bundle
// Ingestor already uses.
func (h *ArtifactHandler) Compile(p any, c *fiber.Ctx) error {
	in := p.(*CompileArtifactInput)

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	req := artifact.Request{
		ArtifactID:  in.ArtifactID,
		CapsuleID:   in.CapsuleID,
		RequestedBy: userID,
		RequestedAt: time.Now(),
	}

	go func() {
		_, _ = h.Compiler.Compile(context.Background(), req)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"artifactId": in.ArtifactID, "status": "enqueued"})
}

// Inspect handles GET /inspect?artifactId=...: the last persisted compile
// request/result pair.
func (h *ArtifactHandler) Inspect(c *fiber.Ctx) error {
	artifactID := c.Query("artifactId")
	if artifactID == "" {
		return nethttp.WithError(c, apperr.ValidationError{EntityType: "artifact", Code: "missing_parameter", Message: "artifactId is required"})
	}

	req, result, found, err := h.Compiler.Inspect(c.UserContext(), artifactID)
	if err != nil {
		return nethttp.WithError(c, apperr.ValidateInternalError(err, "artifact"))
	}

	if !found {
		return nethttp.WithError(c, apperr.NotFoundError{EntityType: "artifact", Code: "not_found", Message: "no compile has run for this artifact"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"lastCompileRequest": req,
		"lastCompileResult":  result,
	})
}

// GetManifest handles GET /artifacts/:id/manifest: prefers the KV mirror a
// successful compile wrote, falling back to the manifest_json persisted
// with the compile result when the cache entry has expired or was never
// populated.
func (h *ArtifactHandler) GetManifest(c *fiber.Ctx) error {
	artifactID := c.Params("id")

	if h.Cache != nil {
		if cached, err := h.Cache.Get(c.UserContext(), "artifact-manifest:"+artifactID); err == nil && cached != "" {
			c.Set(fiber.HeaderContentType, "application/json")
			return c.Status(fiber.StatusOK).SendString(cached)
		}
	}

	if h.Manifests != nil {
		manifestJSON, found, err := h.Manifests.ManifestJSON(c.UserContext(), artifactID)
		if err != nil {
			return nethttp.WithError(c, apperr.ValidateInternalError(err, "artifact"))
		}

		if found {
			c.Set(fiber.HeaderContentType, "application/json")
			return c.Status(fiber.StatusOK).SendString(manifestJSON)
		}
	}

	return nethttp.WithError(c, apperr.NotFoundError{EntityType: "artifact", Code: "not_found", Message: "no runtime manifest for this artifact"})
}

// GetBundle handles GET /artifacts/:id/bundle: the compiled JS/HTML bundle,
// served under a strict CSP whose connect-src opens up to 'self' https: only
// in allow-https mode.
func (h *ArtifactHandler) GetBundle(c *fiber.Ctx) error {
	connectSrc := "'none'"
	if h.BundleNetworkMode == "allow-https" {
		connectSrc = "'self' https:"
	}

	c.Set(fiber.HeaderContentSecurityPolicy, "default-src 'none'; script-src 'self'; connect-src "+connectSrc)
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")

	return h.getBlob(c, "artifacts/"+c.Params("id")+"/bundle.js", "application/javascript")
}

func (h *ArtifactHandler) getBlob(c *fiber.Ctx, key, contentType string) error {
	rc, err := h.Blobs.Get(c.UserContext(), key)
	if err != nil {
		return nethttp.WithError(c, apperr.NotFoundError{EntityType: "artifact", Code: "not_found", Message: "no compiled artifact at this key"})
	}
	defer rc.Close()

	c.Set(fiber.HeaderContentType, contentType)

	body, err := io.ReadAll(rc)
	if err != nil {
		return nethttp.WithError(c, apperr.ValidateInternalError(err, "artifact"))
	}

	return c.Status(fiber.StatusOK).Send(body)
}
