package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrConfiguration", ErrConfiguration},
		{"ErrIngestion", ErrIngestion},
		{"ErrProviderAuth", ErrProviderAuth},
		{"ErrProviderRateLimit", ErrProviderRateLimit},
		{"ErrProviderNetwork", ErrProviderNetwork},
		{"ErrEmptyGeneration", ErrEmptyGeneration},
		{"ErrNoDocument", ErrNoDocument},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestProviderError_Is(t *testing.T) {
	err := &ProviderError{Provider: "gemini", Op: "embed", Kind: ErrProviderAuth, StatusCode: 401}

	assert.True(t, errors.Is(err, ErrProviderAuth))
	assert.False(t, errors.Is(err, ErrProviderNetwork))
	assert.False(t, errors.Is(err, ErrProviderRateLimit))
}

func TestProviderError_WrappedStillMatches(t *testing.T) {
	inner := errors.New("connection reset")
	err := fmt.Errorf("ingest: %w", &ProviderError{
		Provider: "openai", Op: "embed", Kind: ErrProviderNetwork, Err: inner,
	})

	assert.True(t, errors.Is(err, ErrProviderNetwork))
	assert.True(t, errors.Is(err, inner))

	var pe *ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "openai", pe.Provider)
}

func TestProviderError_Message(t *testing.T) {
	err := &ProviderError{
		Provider: "gemini", Op: "generate", Kind: ErrProviderRateLimit,
		StatusCode: 429, Message: "quota exceeded",
	}
	assert.Equal(t, "gemini generate: provider rate limited (status 429): quota exceeded", err.Error())

	err = &ProviderError{Provider: "ollama", Op: "embed", Kind: ErrProviderNetwork, Err: errors.New("dial tcp")}
	assert.Equal(t, "ollama embed: provider network error: dial tcp", err.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"plain", errors.New("boom"), nil},
		{"configuration", fmt.Errorf("segment: %w", ErrConfiguration), ErrConfiguration},
		{"provider", &ProviderError{Kind: ErrProviderAuth}, ErrProviderAuth},
		{"empty generation", ErrEmptyGeneration, ErrEmptyGeneration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&ProviderError{Kind: ErrProviderRateLimit}))
	assert.True(t, IsTransient(&ProviderError{Kind: ErrProviderNetwork}))
	assert.False(t, IsTransient(&ProviderError{Kind: ErrProviderAuth}))
	assert.False(t, IsTransient(ErrEmptyGeneration))
	assert.False(t, IsTransient(nil))
}
