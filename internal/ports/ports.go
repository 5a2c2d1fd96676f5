// Package ports declares the capability interfaces every domain service
// depends on instead of a concrete driver, so production adapters
// (Postgres/Redis/S3/Mongo/RabbitMQ) and in-memory test fakes are
// interchangeable.
package ports

import (
	"context"
	"io"
	"time"
)

// BlobStore is the content-addressed immutable object store backing capsule
// bundles and compiled artifacts.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// KeyValueCache is the fast-path mirror for runtime manifests and the
// rate-limit fallback token bucket.
type KeyValueCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// EventSink fires telemetry/analytics events without the caller waiting on
// delivery (Runtime Event Shard mirror, compile/run analytics).
type EventSink interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// AuditLog is the append-only moderation audit trail.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// AuditEntry records one moderation state transition.
type AuditEntry struct {
	EntityType string
	EntityID   string
	FromStatus string
	ToStatus   string
	ActorID    string
	Reason     string
	At         time.Time
}

// SafetyClassifier is the pluggable content-safety check the Bundle
// Ingestor runs before accepting a bundle. The only shipped implementation
// is a permissive no-op; a real ML classifier plugs in behind this
// interface.
type SafetyClassifier interface {
	Classify(ctx context.Context, contentType string, content []byte) (SafetyVerdict, error)
}

// SafetyVerdict is the outcome of a SafetyClassifier check.
type SafetyVerdict struct {
	Allowed bool
	Reason  string
}

// ActorRegistry routes a keyed operation to the single-writer shard that
// owns that key, spawning the shard's goroutine lazily on first use
// (Counter Shard, Runtime Event Shard, Rate-Limit Shard, and the Artifact
// Compiler Coordinator all share this shape).
type ActorRegistry interface {
	// Dispatch enqueues fn to run exclusively against key, blocking the
	// caller until fn has returned (or ctx is done).
	Dispatch(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
