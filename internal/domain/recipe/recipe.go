// Package recipe implements the pure parameter-coercion rules behind
// Capsule Recipes: validating a recipe's parameter values
// against the capsule manifest's declared params[], dropping unknown keys
// and clamping typed values into range. All persistence lives in
// internal/service/recipe.
package recipe

import (
	"strconv"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
)

const defaultMaxLength = 1000

const maxColorLength = 64

// MaxRecipesPerCapsule is the per-capsule cap, enforced with a 429 once
// reached.
const MaxRecipesPerCapsule = 100

// CoerceParams validates raw against declared, dropping any key raw carries
// that declared doesn't mention, and clamping every surviving value to its
// declared type's range. It returns the coerced param set and whether at
// least one declared parameter matched.
func CoerceParams(declared []capsule.ParamSpec, raw map[string]any) (coerced map[string]any, matched bool) {
	coerced = make(map[string]any, len(declared))

	for _, spec := range declared {
		value, ok := raw[spec.Key]
		if !ok {
			continue
		}

		coercedValue, ok := coerceOne(spec, value)
		if !ok {
			continue
		}

		coerced[spec.Key] = coercedValue
		matched = true
	}

	return coerced, matched
}

func coerceOne(spec capsule.ParamSpec, value any) (any, bool) {
	switch spec.Type {
	case "number":
		return coerceNumber(spec, value)
	case "select":
		return coerceSelect(spec, value)
	case "text":
		return coerceText(spec, value)
	case "color":
		return coerceColor(value)
	default:
		return nil, false
	}
}

func coerceNumber(spec capsule.ParamSpec, value any) (any, bool) {
	n, ok := toFloat64(value)
	if !ok {
		return nil, false
	}

	if spec.Min != nil && n < *spec.Min {
		n = *spec.Min
	}

	if spec.Max != nil && n > *spec.Max {
		n = *spec.Max
	}

	return n, true
}

func coerceSelect(spec capsule.ParamSpec, value any) (any, bool) {
	s, ok := value.(string)
	if !ok {
		return nil, false
	}

	for _, opt := range spec.Options {
		if opt == s {
			return s, true
		}
	}

	return nil, false
}

func coerceText(spec capsule.ParamSpec, value any) (any, bool) {
	s, ok := value.(string)
	if !ok {
		return nil, false
	}

	maxLen := spec.MaxLength
	if maxLen <= 0 {
		maxLen = defaultMaxLength
	}

	if maxLen > defaultMaxLength {
		maxLen = defaultMaxLength
	}

	if len(s) == 0 {
		return s, true
	}

	if len(s) > maxLen {
		s = s[:maxLen]
	}

	return s, true
}

func coerceColor(value any) (any, bool) {
	s, ok := value.(string)
	if !ok {
		return nil, false
	}

	if len(s) > maxColorLength {
		s = s[:maxColorLength]
	}

	return s, true
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
