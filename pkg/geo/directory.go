package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CityDirectory lists the cities of a country from a countriesnow-style API
type CityDirectory struct {
	url    string
	client *http.Client
}

// NewCityDirectory creates a client with the given request timeout
func NewCityDirectory(url string, timeout time.Duration) *CityDirectory {
	return &CityDirectory{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type cityListRequest struct {
	Country string `json:"country"`
}

type cityListResponse struct {
	Error bool     `json:"error"`
	Msg   string   `json:"msg"`
	Data  []string `json:"data"`
}

// Cities returns every city the directory knows for country
func (d *CityDirectory) Cities(ctx context.Context, country string) ([]string, error) {
	body, err := json.Marshal(cityListRequest{Country: country})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal city request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create city request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("city directory request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read city response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("city directory returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed cityListResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse city response: %w", err)
	}
	if parsed.Error {
		return nil, fmt.Errorf("city directory error: %s", parsed.Msg)
	}
	if parsed.Data == nil {
		parsed.Data = []string{}
	}
	return parsed.Data, nil
}
