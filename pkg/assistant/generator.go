// Package assistant talks to the text-generation and entity-extraction
// services behind the chat endpoint.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Parameters are the sampling settings sent with every generation request
type Parameters struct {
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	MaxNewTokens      int     `json:"max_new_tokens"`
	DoSample          bool    `json:"do_sample"`
}

// DefaultParameters keeps replies short and close to the prompt
func DefaultParameters() Parameters {
	return Parameters{
		Temperature:       0.2,
		TopP:              0.9,
		RepetitionPenalty: 1.15,
		MaxNewTokens:      20,
		DoSample:          true,
	}
}

// Generator is a client for a text-generation-inference style server
type Generator struct {
	baseURL string
	params  Parameters
	client  *http.Client
}

// NewGenerator creates a client for the server at baseURL
func NewGenerator(baseURL string, params Parameters, timeout time.Duration) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		params:  params,
		client:  &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters Parameters `json:"parameters"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Generate returns the continuation of prompt, without the prompt itself
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Inputs: prompt, Parameters: g.params})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("generator returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse generate response: %w", err)
	}
	return parsed.GeneratedText, nil
}

// Warm blocks until the server reports healthy once
func (g *Generator) Warm(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("generator health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("generator not ready: status %d", resp.StatusCode)
	}
	return nil
}
