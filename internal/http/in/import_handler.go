package in

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/go-github/v66/github"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
	nethttp "github.com/Braden-sui/Vibecodr-sub002/pkg/net/http"
)

// ImportZipInput is the request body for POST /import/zip: a manifest plus
// a base64-encoded zip archive of the bundle's files.
type ImportZipInput struct {
	Manifest json.RawMessage `json:"manifest" validate:"required"`
	Zip      string          `json:"zip" validate:"required"`
}

// ImportGithubInput is the request body for POST /import/github: a
// manifest plus the public repository (and optional ref) to archive-fetch
// the bundle's files from.
type ImportGithubInput struct {
	Manifest json.RawMessage `json:"manifest" validate:"required"`
	Owner    string          `json:"owner" validate:"required"`
	Repo     string          `json:"repo" validate:"required"`
	Ref      string          `json:"ref"`
}

// ImportZip handles POST /import/zip: the same publish pipeline as
// PublishBundle, fed from an extracted zip archive instead of an explicit
// path->content map.
func (h *CapsuleHandler) ImportZip(p any, c *fiber.Ctx) error {
	in := p.(*ImportZipInput)

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	raw, err := base64.StdEncoding.DecodeString(in.Zip)
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{EntityType: "capsule", Code: "invalid_zip_encoding", Message: err.Error()})
	}

	files, err := capsule.ExtractZip(raw)
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{EntityType: "capsule", Code: "invalid_zip_archive", Message: err.Error()})
	}

	return h.publishFromFiles(c, userID, files, in.Manifest)
}

// ImportGithub handles POST /import/github: fetches a public repository's
// zipball via the GitHub API and runs it through the same publish
// pipeline. Only public, unauthenticated archive fetches are supported —
// this stack carries no GitHub App/OAuth credential flow.
func (h *CapsuleHandler) ImportGithub(p any, c *fiber.Ctx) error {
	in := p.(*ImportGithubInput)

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	ctx := c.UserContext()

	client := github.NewClient(&http.Client{Timeout: 30 * time.Second})

	opts := &github.RepositoryContentGetOptions{Ref: in.Ref}

	archiveURL, resp, err := client.Repositories.GetArchiveLink(ctx, in.Owner, in.Repo, github.Zipball, opts, 3)
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{EntityType: "capsule", Code: "github_archive_unavailable", Message: err.Error()})
	}

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	raw, err := downloadArchive(ctx, archiveURL.String())
	if err != nil {
		return nethttp.WithError(c, apperr.ValidateInternalError(err, "capsule"))
	}

	files, err := capsule.ExtractZip(raw)
	if err != nil {
		return nethttp.WithError(c, apperr.ValidationError{EntityType: "capsule", Code: "invalid_zip_archive", Message: err.Error()})
	}

	return h.publishFromFiles(c, userID, files, in.Manifest)
}

func downloadArchive(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("archive download returned status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, capsule.MaxZipTotalBytes+1))
}

func (h *CapsuleHandler) publishFromFiles(c *fiber.Ctx, userID string, files []capsule.BundleFile, manifestRaw json.RawMessage) error {
	var manifest capsule.Manifest
	if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
		return nethttp.WithError(c, apperr.ValidationError{EntityType: "capsule", Code: "invalid_manifest", Message: err.Error()})
	}

	result, err := h.Ingestor.Publish(c.UserContext(), userID, files, manifestRaw, manifest, nil)
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
