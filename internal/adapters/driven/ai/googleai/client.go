// Package googleai is a minimal REST client for the Gemini API
// (generativelanguage.googleapis.com), shared by the Gemini embedding and
// LLM adapters.
package googleai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai/apierr"
)

// DefaultBaseURL is the public Gemini API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const (
	providerName = "gemini"
	apiKeyHeader = "x-goog-api-key"
)

// Client sends authenticated JSON requests to the Gemini API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// ModelPath returns the resource name the API expects, e.g. "models/embedding-001".
func ModelPath(model string) string {
	if strings.HasPrefix(model, "models/") || strings.HasPrefix(model, "tunedModels/") {
		return model
	}
	return "models/" + model
}

// Post sends in as JSON to {baseURL}/{path} and decodes the reply into out.
// Failures are classified into domain error kinds under op.
func (c *Client) Post(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, op, out)
}

// Get fetches {baseURL}/{path} and decodes the reply into out, which may be nil.
func (c *Client) Get(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, op, out)
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) do(req *http.Request, op string, out any) error {
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return apierr.FromTransport(providerName, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierr.FromTransport(providerName, op, err)
	}
	if err := googleapi.CheckResponseWithBody(resp, body); err != nil {
		return apierr.FromGoogle(providerName, op, err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apierr.Invalid(providerName, op, "decode response: %v", err)
	}
	return nil
}
