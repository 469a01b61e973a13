package models

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/marketoracle/forecast/pkg/httputil"
)

// HTTPAssistantProvider implements AssistantProvider by POSTing an
// OpenAI-compatible chat body to endpoint — the same wire shape
// HTTPModelClient uses for the model pool, reused here since the
// fallback chain needs nothing beyond per-call timeouts, which
// pkg/httputil.Client already supports (spec §11.7: "no separate HTTP
// client type is introduced").
type HTTPAssistantProvider struct {
	name       string
	endpoint   string
	modelName  string
	httpClient *httputil.Client
}

// NewHTTPAssistantProvider builds one fallback chain link, identified
// in logs and /metrics by name (e.g. "primary", "secondary").
func NewHTTPAssistantProvider(name, endpoint, modelName string, httpClient *httputil.Client) *HTTPAssistantProvider {
	return &HTTPAssistantProvider{name: name, endpoint: endpoint, modelName: modelName, httpClient: httpClient}
}

func (p *HTTPAssistantProvider) Name() string { return p.name }

// Complete issues one chat-completion request and returns the first
// choice's raw text content.
func (p *HTTPAssistantProvider) Complete(ctx context.Context, prompt string) (string, error) {
	body := openAICompatibleRequest{
		Model: p.modelName,
		Messages: []openAIChatMessage{
			{Role: "user", Content: prompt},
		},
	}

	resp, err := p.httpClient.PostJSON(ctx, p.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("assistant provider %q request: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("assistant provider %q returned status %d", p.name, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read assistant provider %q response body: %w", p.name, err)
	}

	var decoded openAICompatibleResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode assistant provider %q response: %w", p.name, err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("assistant provider %q response had no choices", p.name)
	}

	return decoded.Choices[0].Message.Content, nil
}
