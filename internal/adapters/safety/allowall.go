// Package safety provides the permissive no-op SafetyClassifier. The
// Bundle Ingestor needs a concrete dependency to call even before a real
// ML classifier exists.
package safety

import (
	"context"

	"github.com/Braden-sui/Vibecodr-sub002/internal/ports"
)

// AllowAllClassifier always allows, deferring real content moderation to a
// future pluggable implementation.
type AllowAllClassifier struct{}

// Classify always returns an allowed verdict.
func (AllowAllClassifier) Classify(ctx context.Context, contentType string, content []byte) (ports.SafetyVerdict, error) {
	return ports.SafetyVerdict{Allowed: true}, nil
}
