package recipe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
)

func floatPtr(f float64) *float64 { return &f }

func TestCoerceParamsDropsUnknownKeys(t *testing.T) {
	declared := []capsule.ParamSpec{{Key: "speed", Type: "number"}}

	coerced, matched := CoerceParams(declared, map[string]any{"speed": 5.0, "ghost": "x"})
	require.True(t, matched)
	require.Equal(t, 5.0, coerced["speed"])
	require.NotContains(t, coerced, "ghost")
}

func TestCoerceParamsFailsWhenNothingMatches(t *testing.T) {
	declared := []capsule.ParamSpec{{Key: "speed", Type: "number"}}

	_, matched := CoerceParams(declared, map[string]any{"unrelated": 1})
	require.False(t, matched)
}

func TestCoerceNumberClampsToMinMax(t *testing.T) {
	declared := []capsule.ParamSpec{{Key: "speed", Type: "number", Min: floatPtr(0), Max: floatPtr(10)}}

	coerced, matched := CoerceParams(declared, map[string]any{"speed": 99.0})
	require.True(t, matched)
	require.Equal(t, 10.0, coerced["speed"])

	coerced, matched = CoerceParams(declared, map[string]any{"speed": -5.0})
	require.True(t, matched)
	require.Equal(t, 0.0, coerced["speed"])
}

func TestCoerceSelectRejectsValueOutsideOptions(t *testing.T) {
	declared := []capsule.ParamSpec{{Key: "mode", Type: "select", Options: []string{"easy", "hard"}}}

	coerced, matched := CoerceParams(declared, map[string]any{"mode": "impossible"})
	require.False(t, matched)
	require.NotContains(t, coerced, "mode")

	coerced, matched = CoerceParams(declared, map[string]any{"mode": "hard"})
	require.True(t, matched)
	require.Equal(t, "hard", coerced["mode"])
}

func TestCoerceTextClampsLengthToMaxLength(t *testing.T) {
	declared := []capsule.ParamSpec{{Key: "label", Type: "text", MaxLength: 5}}

	coerced, matched := CoerceParams(declared, map[string]any{"label": "abcdefghij"})
	require.True(t, matched)
	require.Equal(t, "abcde", coerced["label"])
}

func TestCoerceTextNeverExceedsHardCapRegardlessOfManifest(t *testing.T) {
	declared := []capsule.ParamSpec{{Key: "label", Type: "text", MaxLength: 5000}}

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'a'
	}

	coerced, matched := CoerceParams(declared, map[string]any{"label": string(long)})
	require.True(t, matched)
	require.Len(t, coerced["label"], defaultMaxLength)
}

func TestCoerceColorClampsTo64Chars(t *testing.T) {
	declared := []capsule.ParamSpec{{Key: "tint", Type: "color"}}

	long := make([]byte, 100)
	for i := range long {
		long[i] = 'f'
	}

	coerced, matched := CoerceParams(declared, map[string]any{"tint": string(long)})
	require.True(t, matched)
	require.Len(t, coerced["tint"], maxColorLength)
}
