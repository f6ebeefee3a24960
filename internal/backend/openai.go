// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// groqBaseURL is Groq's OpenAI-compatible chat endpoint, which serves the
// Llama models.
const groqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIBackend extracts a memo via an OpenAI-compatible chat completions
// API. With id "groq" and the Groq base URL it also serves Llama models.
// Per prd004-extraction R1.2.
type OpenAIBackend struct {
	id              string
	client          *openai.Client
	model           string
	maxOutputTokens int
}

// NewOpenAIBackend builds a backend against api.openai.com.
func NewOpenAIBackend(cfg types.BackendConfig, maxOutputTokens int) *OpenAIBackend {
	return &OpenAIBackend{
		id:              "openai",
		client:          openai.NewClient(cfg.APIKey),
		model:           cfg.Model,
		maxOutputTokens: maxOutputTokens,
	}
}

// NewGroqBackend builds a backend against Groq's OpenAI-compatible API.
func NewGroqBackend(cfg types.BackendConfig, maxOutputTokens int) *OpenAIBackend {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = groqBaseURL
	return &OpenAIBackend{
		id:              "groq",
		client:          openai.NewClientWithConfig(clientCfg),
		model:           cfg.Model,
		maxOutputTokens: maxOutputTokens,
	}
}

// newOpenAICompatible builds a backend against an arbitrary base URL.
// Tests use it to point at an httptest server.
func newOpenAICompatible(id, baseURL, apiKey, model string, maxOutputTokens int) *OpenAIBackend {
	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = baseURL
	return &OpenAIBackend{
		id:              id,
		client:          openai.NewClientWithConfig(clientCfg),
		model:           model,
		maxOutputTokens: maxOutputTokens,
	}
}

// ID implements Backend.
func (o *OpenAIBackend) ID() string { return o.id }

// Extract calls the chat completions API with the memo prompt for one record.
func (o *OpenAIBackend) Extract(ctx context.Context, rec types.CanonicalRecord) (Extraction, error) {
	prompt, err := renderPrompt(rec.RawText)
	if err != nil {
		return Extraction{}, fmt.Errorf("rendering prompt: %w", err)
	}

	maxTokens := o.maxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPreamble},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxCompletionTokens: maxTokens,
		Temperature:         0.1,
	})
	if err != nil {
		return Extraction{}, fmt.Errorf("calling %s API: %w", o.id, err)
	}

	if len(resp.Choices) == 0 {
		return Extraction{}, fmt.Errorf("%s API returned no choices", o.id)
	}

	ext, err := parseExtraction(resp.Choices[0].Message.Content)
	if err != nil {
		return Extraction{}, err
	}
	ext.Usage = types.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	return ext, nil
}
