package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// Provider failures are reported as *ProviderError values that match
// one of the provider kinds below with errors.Is.
var (
	// ErrConfiguration indicates invalid parameters such as an overlap
	// larger than the chunk size, a non-positive k, or mismatched
	// vector dimensions.
	ErrConfiguration = errors.New("configuration error")

	// ErrIngestion indicates the document could not be read or held no text.
	ErrIngestion = errors.New("ingestion error")

	// ErrProviderAuth indicates the credential was rejected by a remote provider.
	ErrProviderAuth = errors.New("provider authentication failed")

	// ErrProviderRateLimit indicates a remote provider refused the request
	// because of quota or rate limits.
	ErrProviderRateLimit = errors.New("provider rate limited")

	// ErrProviderNetwork indicates a transport failure or timeout.
	ErrProviderNetwork = errors.New("provider network error")

	// ErrEmptyGeneration indicates the language model returned no text.
	ErrEmptyGeneration = errors.New("empty generation")

	// ErrNoDocument indicates a question was asked before any document was indexed.
	ErrNoDocument = errors.New("no document indexed")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, index or file type.
	ErrUnsupportedType = errors.New("unsupported type")
)

// ProviderError describes a failed call to a remote embedding or
// generation provider.
type ProviderError struct {
	// Provider is the provider name, e.g. "gemini".
	Provider string

	// Op is the failed operation, e.g. "embed" or "generate".
	Op string

	// Kind is usually ErrProviderAuth, ErrProviderRateLimit or
	// ErrProviderNetwork. A request the provider rejects as malformed,
	// such as an unknown model, is ErrConfiguration.
	Kind error

	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int

	// Message is the provider's error text, if any.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements error.
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the error's kind.
func (e *ProviderError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// kinds lists the error kinds in reporting order.
var kinds = []error{
	ErrConfiguration,
	ErrIngestion,
	ErrProviderAuth,
	ErrProviderRateLimit,
	ErrProviderNetwork,
	ErrEmptyGeneration,
	ErrNoDocument,
	ErrInvalidInput,
	ErrUnsupportedType,
}

// KindOf returns the domain error kind err belongs to, or nil if none.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsTransient reports whether err is worth retrying at a later time.
// Only rate limit and network failures qualify.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProviderRateLimit) || errors.Is(err, ErrProviderNetwork)
}
