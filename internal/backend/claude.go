// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dianesarkis1/memo-engine/internal/httputil"
	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// claudeAPIURL is the Claude Messages API endpoint. Package-level var for
// test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend extracts a memo via the Anthropic Messages API.
// Per prd004-extraction R1.2.
type ClaudeBackend struct {
	APIKey          string
	Model           string
	MaxOutputTokens int
	Client          *http.Client
}

// claudeRequest is the request body for the Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Usage   claudeUsage     `json:"usage"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ID implements Backend.
func (c *ClaudeBackend) ID() string { return "claude" }

// Extract calls the Claude API with the memo prompt for one record.
func (c *ClaudeBackend) Extract(ctx context.Context, rec types.CanonicalRecord) (Extraction, error) {
	prompt, err := renderPrompt(rec.RawText)
	if err != nil {
		return Extraction{}, fmt.Errorf("rendering prompt: %w", err)
	}

	maxTokens := c.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	reqBody := claudeRequest{
		Model:     c.Model,
		MaxTokens: maxTokens,
		System:    systemPreamble,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Extraction{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return Extraction{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return Extraction{}, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Extraction{}, &apiStatusError{Provider: "Claude", Status: resp.StatusCode, Body: string(body)}
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return Extraction{}, fmt.Errorf("decoding Claude response: %w", err)
	}

	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		ext, err := parseExtraction(block.Text)
		if err != nil {
			return Extraction{}, err
		}
		ext.Usage = types.Usage{
			PromptTokens:     cResp.Usage.InputTokens,
			CompletionTokens: cResp.Usage.OutputTokens,
		}
		return ext, nil
	}

	return Extraction{}, fmt.Errorf("no text content in Claude API response")
}
