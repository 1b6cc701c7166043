package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNoMatch is returned when the geocoder has no result for a query
var ErrNoMatch = errors.New("no geocoding match")

// Geocoder resolves a city to coordinates through a Nominatim-compatible search API
type Geocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewGeocoder creates a geocoding client. Nominatim's usage policy requires
// an identifying User-Agent.
func NewGeocoder(baseURL, userAgent string, timeout time.Duration) *Geocoder {
	return &Geocoder{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup returns the coordinates of the first match for city in country.
// country may be empty.
func (g *Geocoder) Lookup(ctx context.Context, city, country string) (Point, error) {
	params := url.Values{}
	params.Set("city", city)
	if country != "" {
		params.Set("country", country)
	}
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Point{}, fmt.Errorf("failed to create geocode request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Point{}, fmt.Errorf("failed to parse geocode response: %w", err)
	}
	if len(results) == 0 {
		return Point{}, ErrNoMatch
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}
	return Point{Lat: lat, Lon: lon}, nil
}
