// Package bridge provides the HTTP client the tool gateway uses to reach
// the bridge server's facade.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/browser-bridge/backend/internal/call"
)

// Client talks to the bridge server's HTTP facade.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a facade client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// Above the correlator timeout so server-side expiry wins.
		http: &http.Client{Timeout: call.DefaultTimeout + 5*time.Second},
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// Call posts a browser action to the facade and returns the raw result
// payload. Failed calls come back as errors carrying the server's message.
func (c *Client) Call(ctx context.Context, action string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/browser/"+action, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge server unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			return nil, errors.New(eb.Error)
		}
		return nil, fmt.Errorf("bridge server returned status %d", resp.StatusCode)
	}

	return data, nil
}
