package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Entity labels that name places
const (
	LabelGPE = "GPE"
	LabelLOC = "LOC"
)

// Entity is one named entity found in a message
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// IsPlace reports whether the entity names a geopolitical entity or location
func (e Entity) IsPlace() bool {
	return e.Label == LabelGPE || e.Label == LabelLOC
}

// Places returns the texts of the place entities, in order
func Places(entities []Entity) []string {
	places := []string{}
	for _, e := range entities {
		if e.IsPlace() {
			places = append(places, e.Text)
		}
	}
	return places
}

// EntityClient calls a spaCy-style NER service
type EntityClient struct {
	baseURL string
	client  *http.Client
}

// NewEntityClient creates a client for the service at baseURL
func NewEntityClient(baseURL string, timeout time.Duration) *EntityClient {
	return &EntityClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type entitiesRequest struct {
	Text string `json:"text"`
}

type entitiesResponse struct {
	Ents []Entity `json:"ents"`
}

// Entities returns the named entities of text in document order
func (c *EntityClient) Entities(ctx context.Context, text string) ([]Entity, error) {
	body, err := json.Marshal(entitiesRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entities request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ents", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create entities request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("entities request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("entity service returned status %d", resp.StatusCode)
	}

	var parsed entitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse entities response: %w", err)
	}
	return parsed.Ents, nil
}

// Warm sends one request so the model is loaded before the first user message
func (c *EntityClient) Warm(ctx context.Context) error {
	_, err := c.Entities(ctx, "From Bucharest to Cluj")
	return err
}
