// Package apierr maps remote provider failures onto domain error kinds.
//
// Every embedding and LLM adapter reports failures through this package so
// callers can branch on domain.ErrProviderAuth, domain.ErrProviderRateLimit
// and domain.ErrProviderNetwork without knowing which provider is in use.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// maxMessage bounds the provider text copied into an error.
const maxMessage = 300

// KindForStatus returns the error kind for an HTTP status code,
// or nil for a success status.
func KindForStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ErrProviderAuth
	case status == http.StatusTooManyRequests:
		return domain.ErrProviderRateLimit
	case status == http.StatusRequestTimeout, status >= 500:
		return domain.ErrProviderNetwork
	default:
		return domain.ErrConfiguration
	}
}

// FromStatus builds a *domain.ProviderError from a non-2xx response.
// It returns nil for success statuses.
func FromStatus(provider, op string, status int, body []byte) error {
	kind := KindForStatus(status)
	if kind == nil {
		return nil
	}
	msg := Message(body)
	if status == http.StatusBadRequest && looksLikeBadKey(msg) {
		kind = domain.ErrProviderAuth
	}
	if status == http.StatusForbidden && looksLikeQuota(msg) {
		kind = domain.ErrProviderRateLimit
	}
	return &domain.ProviderError{
		Provider:   provider,
		Op:         op,
		Kind:       kind,
		StatusCode: status,
		Message:    msg,
	}
}

// FromTransport wraps a failure to reach the provider at all.
// Cancellation keeps its identity so errors.Is(err, context.Canceled) holds.
func FromTransport(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return err
	}
	return &domain.ProviderError{
		Provider: provider,
		Op:       op,
		Kind:     domain.ErrProviderNetwork,
		Err:      err,
	}
}

// FromGoogle classifies an error returned by a google.golang.org/api client.
func FromGoogle(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return FromTransport(provider, op, err)
	}

	msg := gerr.Message
	if msg == "" {
		msg = Message([]byte(gerr.Body))
	}
	kind := KindForStatus(gerr.Code)
	if kind == nil {
		kind = domain.ErrProviderNetwork
	}
	for _, item := range gerr.Details {
		if detailHasReason(item, "API_KEY_INVALID") {
			kind = domain.ErrProviderAuth
		}
	}
	if gerr.Code == http.StatusBadRequest && looksLikeBadKey(msg) {
		kind = domain.ErrProviderAuth
	}
	if looksLikeQuota(msg) && gerr.Code != http.StatusBadRequest {
		kind = domain.ErrProviderRateLimit
	}

	return &domain.ProviderError{
		Provider:   provider,
		Op:         op,
		Kind:       kind,
		StatusCode: gerr.Code,
		Message:    truncate(msg),
		Err:        err,
	}
}

// Invalid reports a response that arrived but could not be used,
// such as a body that does not decode or has the wrong shape.
func Invalid(provider, op, format string, args ...any) error {
	return &domain.ProviderError{
		Provider: provider,
		Op:       op,
		Kind:     domain.ErrProviderNetwork,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Message extracts the human-readable text from a provider error body.
// It understands {"error": {"message": ...}} and {"error": "..."} and
// falls back to the raw body.
func Message(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return truncate(nested.Error.Message)
	}

	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		return truncate(flat.Error)
	}

	return truncate(trimmed)
}

func looksLikeBadKey(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "api key not valid") ||
		strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "api_key_invalid")
}

func looksLikeQuota(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit")
}

func detailHasReason(detail any, reason string) bool {
	m, ok := detail.(map[string]any)
	if !ok {
		return false
	}
	r, _ := m["reason"].(string)
	return r == reason
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxMessage {
		return s
	}
	cut := maxMessage
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
