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

// geminiAPIBase is the generativelanguage endpoint prefix. Package-level var
// for test substitution; the model name and key complete the URL.
var geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiBackend extracts a memo via the Gemini generateContent REST API.
// Per prd004-extraction R1.2.
type GeminiBackend struct {
	APIKey          string
	Model           string
	MaxOutputTokens int
	Client          *http.Client
}

// geminiRequest is the generateContent request body.
type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiGenConfig pins near-deterministic decoding for extraction.
type geminiGenConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

// geminiResponse is the generateContent response body.
type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// ID implements Backend.
func (g *GeminiBackend) ID() string { return "gemini" }

// Extract calls the Gemini API with the memo prompt for one record.
func (g *GeminiBackend) Extract(ctx context.Context, rec types.CanonicalRecord) (Extraction, error) {
	prompt, err := renderPrompt(rec.RawText)
	if err != nil {
		return Extraction{}, fmt.Errorf("rendering prompt: %w", err)
	}

	maxTokens := g.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: systemPreamble + "\n\n" + prompt}}},
		},
		GenerationConfig: geminiGenConfig{
			MaxOutputTokens: maxTokens,
			Temperature:     0.1,
			TopP:            0.8,
			TopK:            40,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Extraction{}, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiAPIBase, g.Model, g.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return Extraction{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return Extraction{}, fmt.Errorf("calling Gemini API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Extraction{}, &apiStatusError{Provider: "Gemini", Status: resp.StatusCode, Body: string(body)}
	}

	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return Extraction{}, fmt.Errorf("decoding Gemini response: %w", err)
	}

	if len(gResp.Candidates) == 0 || len(gResp.Candidates[0].Content.Parts) == 0 {
		return Extraction{}, fmt.Errorf("Gemini API returned no candidates")
	}

	ext, err := parseExtraction(gResp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return Extraction{}, err
	}
	ext.Usage = types.Usage{
		PromptTokens:     gResp.UsageMetadata.PromptTokenCount,
		CompletionTokens: gResp.UsageMetadata.CandidatesTokenCount,
	}
	return ext, nil
}
