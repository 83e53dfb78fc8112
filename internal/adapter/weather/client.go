// Package weather implements domain.WeatherService against the Open-Meteo
// forecast API, with an in-memory caching decorator.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/civicgrid/civic-report-service/internal/domain"
	"github.com/civicgrid/civic-report-service/internal/observability"
)

// Client fetches current conditions from Open-Meteo. The API is keyless;
// only the base URL and timeout are configurable.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an Open-Meteo weather client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckWeather returns a snapshot of current conditions at the coordinate.
// Callers treat any error as non-fatal and substitute
// domain.NeutralWeather.
func (c *Client) CheckWeather(ctx context.Context, lat, lng float64) (domain.Weather, error) {
	params := url.Values{
		"latitude":  {fmt.Sprintf("%.4f", lat)},
		"longitude": {fmt.Sprintf("%.4f", lng)},
		"current":   {"precipitation,weather_code"},
	}

	start := time.Now()
	snapshot, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.LookupDuration.WithLabelValues("weather").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.LookupRequests.WithLabelValues("weather", "error").Inc()
		return domain.Weather{}, err
	}

	c.metrics.LookupRequests.WithLabelValues("weather", "success").Inc()
	return snapshot, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Weather, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Weather{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var meteoResp response
	if err := json.NewDecoder(resp.Body).Decode(&meteoResp); err != nil {
		return domain.Weather{}, fmt.Errorf("decode response: %w", err)
	}

	return domain.Weather{
		Condition:       conditionFromCode(meteoResp.Current.WeatherCode),
		PrecipitationMM: meteoResp.Current.Precipitation,
	}, nil
}

// conditionFromCode maps WMO weather interpretation codes to the coarse
// condition categories the classifier understands. Drizzle (51-57), rain
// (61-67), showers (80-82), and thunderstorms (95-99) all count as rain.
func conditionFromCode(code int) domain.WeatherCondition {
	switch {
	case code == 0:
		return domain.ConditionClear
	case code >= 1 && code <= 3, code == 45, code == 48:
		return domain.ConditionCloudy
	case code >= 51 && code <= 67, code >= 80 && code <= 82, code >= 95 && code <= 99:
		return domain.ConditionRain
	default:
		return domain.ConditionUnknown
	}
}

// Open-Meteo API response types.

type response struct {
	Current current `json:"current"`
}

type current struct {
	Precipitation float64 `json:"precipitation"` // mm/h
	WeatherCode   int     `json:"weather_code"`  // WMO code
}
