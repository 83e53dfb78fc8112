// Package geocode implements domain.Geocoder against the Nominatim reverse
// geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/civicgrid/civic-report-service/internal/observability"
)

// Client resolves coordinates to display addresses via Nominatim. Failures
// are non-fatal for callers: a report still goes through with a generic
// fallback address.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Nominatim reverse-geocoding client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
		metrics:    metrics,
	}
}

// ReverseGeocode converts a coordinate to a human-readable address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	params := url.Values{
		"format": {"jsonv2"},
		"lat":    {fmt.Sprintf("%.6f", lat)},
		"lon":    {fmt.Sprintf("%.6f", lng)},
	}

	start := time.Now()
	address, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.LookupDuration.WithLabelValues("geocode").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.LookupRequests.WithLabelValues("geocode", "error").Inc()
		return "", err
	}

	c.metrics.LookupRequests.WithLabelValues("geocode", "success").Inc()
	return address, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	// Nominatim's usage policy requires an identifying user agent.
	req.Header.Set("User-Agent", "civic-report-service/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var nomResp response
	if err := json.NewDecoder(resp.Body).Decode(&nomResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if nomResp.DisplayName == "" {
		return "", fmt.Errorf("no address for %s", fullURL)
	}
	return nomResp.DisplayName, nil
}

type response struct {
	DisplayName string `json:"display_name"`
}
