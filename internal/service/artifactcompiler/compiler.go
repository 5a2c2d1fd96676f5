// Package artifactcompiler implements the Artifact Compiler Coordinator:
// the I/O side of compiling a capsule's bundle into a
// runnable artifact, dispatched single-writer-per-artifact through
// internal/shard's actor registry.
package artifactcompiler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/artifact"
	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
	"github.com/Braden-sui/Vibecodr-sub002/internal/ports"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
)

// BundleSource supplies the capsule bundle and manifest a compile runs
// against.
type BundleSource interface {
	LoadBundle(ctx context.Context, capsuleID string) ([]capsule.BundleFile, capsule.Manifest, error)
}

// Store persists artifact compile state: version counter, lifecycle
// status, and the last request/result pair.
type Store interface {
	NextVersion(ctx context.Context, artifactID string) (int, error)
	SaveRequest(ctx context.Context, req artifact.Request) error
	SaveResult(ctx context.Context, res artifact.Result) error
	SetStatus(ctx context.Context, artifactID string, status artifact.Status) error
	LastCompile(ctx context.Context, artifactID string) (artifact.Request, artifact.Result, bool, error)
}

// blobKey layout: canonical manifest under v{version}, plus a stable
// "latest" alias so runners always have one key to fetch.
func bundleKey(artifactID string) string   { return fmt.Sprintf("artifacts/%s/bundle.js", artifactID) }
func manifestKeyV(artifactID string, v int) string {
	return fmt.Sprintf("artifacts/%s/v%d/runtime-manifest.json", artifactID, v)
}
func manifestAliasKey(artifactID string) string { return fmt.Sprintf("artifacts/%s/manifest.json", artifactID) }

func cacheKey(artifactID string) string { return "artifact-manifest:" + artifactID }

const cacheTTL = 10 * time.Minute

// Coordinator compiles a capsule's bundle into a versioned artifact,
// serialized per-artifactId through the shard registry so concurrent
// compile requests for the same artifact never interleave writes.
type Coordinator struct {
	registry ports.ActorRegistry
	bundles  BundleSource
	store    Store
	blobs    ports.BlobStore
	cache    ports.KeyValueCache
	events   ports.EventSink
	logger   mlog.Logger
}

// New builds a Coordinator. registry may be nil in tests exercising only
// the pure compile logic; events may be nil to skip compile telemetry.
func New(registry ports.ActorRegistry, bundles BundleSource, store Store, blobs ports.BlobStore, cache ports.KeyValueCache, events ports.EventSink, logger mlog.Logger) *Coordinator {
	return &Coordinator{registry: registry, bundles: bundles, store: store, blobs: blobs, cache: cache, events: events, logger: logger}
}

// emitCompile mirrors the compile outcome to the telemetry sink:
// outcome, runtime type, bundle size, and elapsed time.
func (c *Coordinator) emitCompile(ctx context.Context, req artifact.Request, outcome, runner string, bundleSize int) {
	if c.events == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"artifactId": req.ArtifactID,
		"outcome":    outcome,
		"runner":     runner,
		"bundleSize": bundleSize,
		"elapsedMs":  time.Since(req.RequestedAt).Milliseconds(),
	})
	if err != nil {
		return
	}

	_ = c.events.Publish(ctx, "artifact_compile", payload)
}

func (c *Coordinator) dispatch(ctx context.Context, artifactID string, fn func(ctx context.Context) error) error {
	if c.registry == nil {
		return fn(ctx)
	}

	return c.registry.Dispatch(ctx, "artifact:"+artifactID, fn)
}

// Compile runs the full compile pipeline for one artifact request:
// load bundle -> bundle/sanitize per runner -> digest -> next version ->
// blob writes -> best-effort cache mirror -> persisted request/result ->
// status transition. Enqueue at the HTTP layer returns 202 immediately;
// this method is what the queued worker actually invokes.
func (c *Coordinator) Compile(ctx context.Context, req artifact.Request) (artifact.Result, error) {
	var result artifact.Result

	err := c.dispatch(ctx, req.ArtifactID, func(ctx context.Context) error {
		if err := c.store.SaveRequest(ctx, req); err != nil {
			return fmt.Errorf("persist compile request: %w", err)
		}

		files, manifest, err := c.bundles.LoadBundle(ctx, req.CapsuleID)
		if err != nil {
			result = c.fail(ctx, req, fmt.Sprintf("load bundle: %v", err))
			return nil
		}

		runner, err := capsule.ResolveRunner(manifest.Runner, manifest.Entry)
		if err != nil {
			result = c.fail(ctx, req, fmt.Sprintf("resolve runner: %v", err))
			return nil
		}

		var output []byte

		switch runner {
		case capsule.RunnerHTML:
			baseHref := fmt.Sprintf("/artifacts/%s/", req.ArtifactID)

			output, err = artifact.BundleHTML(files, manifest.Entry, baseHref)
			if err != nil {
				result = c.fail(ctx, req, fmt.Sprintf("bundle html: %v", err))
				return nil
			}
		case capsule.RunnerReactJSX:
			var issues []artifact.ImportIssue

			output, issues, err = artifact.BundleReactJSX(files, manifest.Entry)
			if err != nil {
				msg := fmt.Sprintf("bundle react-jsx: %v", err)
				if len(issues) > 0 {
					msg = fmt.Sprintf("%s (%v)", msg, issues[0])
				}

				result = c.fail(ctx, req, msg)
				return nil
			}
		default:
			result = c.fail(ctx, req, fmt.Sprintf("unsupported runner %q", manifest.Runner))
			return nil
		}

		digest := sha256.Sum256(output)
		bundleDigest := hex.EncodeToString(digest[:])

		version, err := c.store.NextVersion(ctx, req.ArtifactID)
		if err != nil {
			return fmt.Errorf("allocate version: %w", err)
		}

		if err := c.blobs.Put(ctx, bundleKey(req.ArtifactID), bytes.NewReader(output), int64(len(output)), "application/javascript"); err != nil {
			return fmt.Errorf("write bundle blob: %w", err)
		}

		rm := artifact.Manifest{
			ArtifactID:   req.ArtifactID,
			CapsuleID:    req.CapsuleID,
			Version:      version,
			Runner:       string(runner),
			BundleDigest: bundleDigest,
			BundleKey:    bundleKey(req.ArtifactID),
			CreatedAt:    req.RequestedAt,
		}

		manifestJSON, err := json.Marshal(rm)
		if err != nil {
			return fmt.Errorf("marshal runtime manifest: %w", err)
		}

		if err := c.blobs.Put(ctx, manifestKeyV(req.ArtifactID, version), bytes.NewReader(manifestJSON), int64(len(manifestJSON)), "application/json"); err != nil {
			return fmt.Errorf("write versioned manifest blob: %w", err)
		}

		if err := c.blobs.Put(ctx, manifestAliasKey(req.ArtifactID), bytes.NewReader(manifestJSON), int64(len(manifestJSON)), "application/json"); err != nil {
			return fmt.Errorf("write manifest alias blob: %w", err)
		}

		if c.cache != nil {
			if err := c.cache.Set(ctx, cacheKey(req.ArtifactID), string(manifestJSON), cacheTTL); err != nil {
				c.logger.Warnf("artifact manifest cache mirror failed for %s: %v", req.ArtifactID, err)
			}
		}

		result = artifact.Result{
			ArtifactID:   req.ArtifactID,
			Version:      version,
			BundleDigest: bundleDigest,
			Status:       artifact.StatusActive,
			ManifestJSON: string(manifestJSON),
			CompletedAt:  req.RequestedAt,
		}

		if err := c.store.SaveResult(ctx, result); err != nil {
			return fmt.Errorf("persist compile result: %w", err)
		}

		c.emitCompile(ctx, req, "success", string(runner), len(output))

		return c.store.SetStatus(ctx, req.ArtifactID, artifact.StatusActive)
	})

	return result, err
}

// fail persists a failed compile result, returning it for the caller's
// response. The artifact's lifecycle status is left untouched: a draft that
// fails to compile stays draft, and an active artifact whose recompile
// fails keeps serving its last good bundle.
func (c *Coordinator) fail(ctx context.Context, req artifact.Request, reason string) artifact.Result {
	result := artifact.Result{
		ArtifactID:  req.ArtifactID,
		Status:      artifact.StatusFailed,
		Error:       reason,
		CompletedAt: req.RequestedAt,
	}

	if err := c.store.SaveResult(ctx, result); err != nil {
		c.logger.Errorf("persist failed compile result for %s: %v", req.ArtifactID, err)
	}

	c.emitCompile(ctx, req, "compile_failed", "", 0)

	return result
}

// Inspect returns the last persisted compile request/result for an
// artifact, routed through the same
// per-artifact dispatch so a read never interleaves with an in-flight
// compile's writes.
func (c *Coordinator) Inspect(ctx context.Context, artifactID string) (artifact.Request, artifact.Result, bool, error) {
	var (
		req    artifact.Request
		result artifact.Result
		found  bool
	)

	err := c.dispatch(ctx, artifactID, func(ctx context.Context) error {
		var err error
		req, result, found, err = c.store.LastCompile(ctx, artifactID)
		return err
	})

	return req, result, found, err
}
