// Package util holds small generic helpers shared across layers: slice
// membership, UUID generation/validation, and struct-to-JSON conversion.
package util

import (
	"encoding/json"
	"regexp"

	"github.com/google/uuid"
)

// Contains checks if an item is in a slice. Uses type parameters to work
// with any comparable slice element type.
func Contains[T comparable](slice []T, item T) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}

	return false
}

var uuidPattern = regexp.MustCompile("^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[1-5][a-fA-F0-9]{3}-[89abAB][a-fA-F0-9]{3}-[a-fA-F0-9]{12}$")

// IsUUID validates that s is an RFC 4122 UUID.
func IsUUID(s string) bool {
	return uuidPattern.MatchString(s)
}

// GenerateUUIDv7 returns a new time-ordered UUIDv7. IsUUID rejects it, since
// its pattern accepts versions 1-5 only.
func GenerateUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// StructToJSONString marshals s to a JSON string, used when attaching a
// struct as a single span attribute.
func StructToJSONString(s any) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	return string(b), nil
}
