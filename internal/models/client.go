package models

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/marketoracle/forecast/pkg/httputil"
)

// openAICompatibleRequest is the unified upstream gateway's request
// body (spec §4.4: "a unified upstream gateway with OpenAI-compatible
// JSON bodies").
type openAICompatibleRequest struct {
	Model    string              `json:"model"`
	Messages []openAIChatMessage `json:"messages"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAICompatibleResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
}

// HTTPModelClient implements contracts.ModelClient by POSTing an
// OpenAI-compatible chat completion body to endpoint and returning the
// first choice's raw text content. One instance is shared across the
// whole model pool; the wire-level model name travels with each call.
type HTTPModelClient struct {
	httpClient *httputil.Client
}

// NewHTTPModelClient builds a client that talks to any endpoint in the
// configured model pool.
func NewHTTPModelClient(httpClient *httputil.Client) *HTTPModelClient {
	return &HTTPModelClient{httpClient: httpClient}
}

// Invoke issues one request and returns the raw text content.
// Parsing the JSON embedded in that text is the orchestrator's
// concern (spec §6).
func (c *HTTPModelClient) Invoke(ctx context.Context, endpoint string, modelID string, prompt string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body := openAICompatibleRequest{
		Model: modelID,
		Messages: []openAIChatMessage{
			{Role: "user", Content: prompt},
		},
	}

	resp, err := c.httpClient.PostJSON(ctx, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("model endpoint returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read model response body: %w", err)
	}

	var decoded openAICompatibleResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("model response had no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}
