package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsInt(t *testing.T) {
	assert.Equal(t, 5, AsInt(5))
	assert.Equal(t, 5, AsInt(int64(5)))
	assert.Equal(t, 5, AsInt(5.9))
	assert.Equal(t, 42, AsInt(" 42 "))
	assert.Equal(t, 0, AsInt("nope"))
	assert.Equal(t, 0, AsInt(nil))
}

func TestAsFloat(t *testing.T) {
	assert.Equal(t, 2.5, AsFloat(2.5))
	assert.Equal(t, 3.0, AsFloat(int64(3)))
	assert.Equal(t, 0.5, AsFloat("0.5"))
	assert.Equal(t, 0.0, AsFloat(true))
}

func TestAsBool(t *testing.T) {
	assert.True(t, AsBool(true))
	assert.True(t, AsBool("true"))
	assert.False(t, AsBool("maybe"))
	assert.False(t, AsBool(1))
}

func TestAsString(t *testing.T) {
	assert.Equal(t, "x", AsString("x"))
	assert.Equal(t, "", AsString(3))
}

func TestAsStringSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, AsStringSlice([]any{"a", 1, "b"}))
	assert.Equal(t, []string{"c"}, AsStringSlice([]string{"c"}))
	assert.Nil(t, AsStringSlice("c"))
}

func TestFlattenNest_RoundTrip(t *testing.T) {
	flat := map[string]any{
		"chunking.size":    int64(600),
		"chunking.overlap": int64(100),
		"llm.provider":     "gemini",
		"top":              true,
	}

	nested := Nest(flat)
	assert.Equal(t, map[string]any{
		"chunking": map[string]any{"size": int64(600), "overlap": int64(100)},
		"llm":      map[string]any{"provider": "gemini"},
		"top":      true,
	}, nested)
	assert.Equal(t, flat, Flatten(nested))
}
