// Package artifact implements the pure compile-pipeline pieces behind the
// Artifact Compiler Coordinator: the runtime manifest shape
// and the html/react-jsx bundling+sanitization passes. All I/O (blob
// writes, KV mirror, persistence, single-writer dispatch) lives in
// internal/service/artifactcompiler.
package artifact

import "time"

// Manifest is the compiled runtime manifest written to
// artifacts/{id}/v1/runtime-manifest.json.
type Manifest struct {
	ArtifactID   string    `json:"artifactId"`
	CapsuleID    string    `json:"capsuleId"`
	Version      int       `json:"version"`
	Runner       string    `json:"runner"`
	BundleDigest string    `json:"bundleDigest"`
	BundleKey    string    `json:"bundleKey"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Status is the artifact's lifecycle state.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusActive      Status = "active"
	StatusQuarantined Status = "quarantined"
	StatusRemoved     Status = "removed"

	// StatusFailed marks a compile Result only; it is never a lifecycle
	// state — an artifact whose compile fails keeps its prior status.
	StatusFailed Status = "failed"
)

// Request is one persisted compile request.
type Request struct {
	ArtifactID  string
	CapsuleID   string
	RequestedBy string
	RequestedAt time.Time
}

// Result is one persisted compile result. ManifestJSON carries the runtime
// manifest produced by a successful compile so readers can serve it from
// the relational store when the KV mirror misses.
type Result struct {
	ArtifactID   string
	Version      int
	BundleDigest string
	Status       Status
	Error        string
	ManifestJSON string
	CompletedAt  time.Time
}
