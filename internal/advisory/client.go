package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrNoResult is returned when the service answered but had no usable result.
var ErrNoResult = errors.New("advisory service returned no result")

// Advisor answers analytics questions with a JSON result shaped like the
// deterministic engine's output.
type Advisor interface {
	Advise(ctx context.Context, capability Capability, groupID string, payload interface{}) (json.RawMessage, error)
}

// Client represents a client for the advisory service API
type Client struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout overrides the default request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithModel sets the model name forwarded with every request
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// NewClient creates a new advisory client
func NewClient(apiURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Advise posts the payload for a capability and returns the raw result. It
// returns ErrNoResult when the service responds without a result.
func (c *Client) Advise(ctx context.Context, capability Capability, groupID string, payload interface{}) (json.RawMessage, error) {
	if !capability.Valid() {
		return nil, fmt.Errorf("invalid capability: %s", capability)
	}

	jsonData, err := json.Marshal(&Request{
		Capability: capability,
		GroupID:    groupID,
		Model:      c.model,
		Payload:    payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.apiURL
	if !isFullURL(url) {
		url = fmt.Sprintf("%s/v1/advise", c.apiURL)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, ErrNoResult
	}

	var advResp Response
	if err := json.NewDecoder(resp.Body).Decode(&advResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if advResp.Error != "" {
			return nil, fmt.Errorf("advisory failed with status %d: %s", resp.StatusCode, advResp.Error)
		}
		return nil, fmt.Errorf("advisory failed with status %d", resp.StatusCode)
	}

	if isEmptyResult(advResp.Result) {
		return nil, ErrNoResult
	}
	return advResp.Result, nil
}

// Disabled is an Advisor that never has a result.
type Disabled struct{}

func (Disabled) Advise(context.Context, Capability, string, interface{}) (json.RawMessage, error) {
	return nil, ErrNoResult
}

func isEmptyResult(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null" || trimmed == "{}"
}

// isFullURL checks if the URL already contains the /v1/advise path
func isFullURL(url string) bool {
	return strings.HasSuffix(url, "/v1/advise")
}
