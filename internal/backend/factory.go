// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"fmt"
	"net/http"

	"github.com/dianesarkis1/memo-engine/pkg/types"
)

// Secret file names recognized by the factory (loaded from .secrets/).
const (
	secretOpenAI = "openai-api-key"
	secretClaude = "anthropic-api-key"
	secretGemini = "gemini-api-key"
	secretGroq   = "groq-api-key"
)

// FromConfig builds the configured backend set. API keys resolve from config
// first, then the secrets map; a model backend without a key is an error.
// The pattern backend needs neither (R5.2).
func FromConfig(cfg types.ExtractionConfig, secrets map[string]string) ([]Backend, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var backends []Backend
	for _, name := range cfg.Backends {
		switch name {
		case "pattern":
			backends = append(backends, &PatternBackend{})

		case "openai":
			key, err := resolveKey(cfg.OpenAI.APIKey, secrets, secretOpenAI, name)
			if err != nil {
				return nil, err
			}
			bc := cfg.OpenAI
			bc.APIKey = key
			backends = append(backends, NewOpenAIBackend(bc, cfg.MaxOutputTokens))

		case "groq":
			key, err := resolveKey(cfg.Groq.APIKey, secrets, secretGroq, name)
			if err != nil {
				return nil, err
			}
			bc := cfg.Groq
			bc.APIKey = key
			backends = append(backends, NewGroqBackend(bc, cfg.MaxOutputTokens))

		case "claude":
			key, err := resolveKey(cfg.Claude.APIKey, secrets, secretClaude, name)
			if err != nil {
				return nil, err
			}
			backends = append(backends, &ClaudeBackend{
				APIKey:          key,
				Model:           cfg.Claude.Model,
				MaxOutputTokens: cfg.MaxOutputTokens,
				Client:          httpClient,
			})

		case "gemini":
			key, err := resolveKey(cfg.Gemini.APIKey, secrets, secretGemini, name)
			if err != nil {
				return nil, err
			}
			backends = append(backends, &GeminiBackend{
				APIKey:          key,
				Model:           cfg.Gemini.Model,
				MaxOutputTokens: cfg.MaxOutputTokens,
				Client:          httpClient,
			})

		default:
			return nil, fmt.Errorf("unknown backend %q (known: openai, claude, gemini, groq, pattern)", name)
		}
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no backends configured")
	}
	return backends, nil
}

func resolveKey(fromConfig string, secrets map[string]string, secretName, backendName string) (string, error) {
	if fromConfig != "" {
		return fromConfig, nil
	}
	if v, ok := secrets[secretName]; ok {
		return v, nil
	}
	return "", fmt.Errorf("backend %s: no API key in config or .secrets/%s", backendName, secretName)
}
