package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/observability"
)

// DefaultBaseURL is the OpenWeatherMap API root.
const DefaultBaseURL = "https://api.openweathermap.org"

// Client implements domain.WeatherProvider using the OpenWeatherMap
// current weather API. Every call is live: no retries, no caching.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// Current fetches conditions for city in metric units. Any non-200 response is
// reported as domain.ErrCityNotFound; only a 404 is treated as a quiet miss,
// every other failure is logged at warn. The returned snapshot is always the
// zero value when err != nil.
func (c *Client) Current(ctx context.Context, city string) (domain.WeatherSnapshot, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return domain.WeatherSnapshot{}, fmt.Errorf("%w: empty city name", domain.ErrCityNotFound)
	}

	params := url.Values{
		"q":     {city},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	fullURL := c.baseURL + "/data/2.5/weather?" + params.Encode()

	start := time.Now()
	snap, status, err := c.doRequest(ctx, fullURL)
	c.metrics.WeatherAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.WeatherRequests.WithLabelValues("success").Inc()
	case status == http.StatusNotFound:
		c.metrics.WeatherRequests.WithLabelValues("not_found").Inc()
		c.logger.Debug("weather lookup rejected", "city", city, "error", err)
	default:
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		c.logger.Warn("weather provider failure", "city", city, "status", status, "error", err)
	}
	return snap, err
}

// doRequest returns the HTTP status alongside the result; status is 0 when no
// response was received.
func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.WeatherSnapshot, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherSnapshot{}, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherSnapshot{}, 0, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.WeatherSnapshot{}, resp.StatusCode, fmt.Errorf("%w: openweather status %d: %s", domain.ErrCityNotFound, resp.StatusCode, body)
	}

	var owResp response
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return domain.WeatherSnapshot{}, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	snap, err := owResp.snapshot()
	return snap, resp.StatusCode, err
}

// OpenWeatherMap API response types.

type response struct {
	Main  *mainBlock  `json:"main"`
	Coord *coordBlock `json:"coord"`
	Rain  *rainBlock  `json:"rain"`
}

type mainBlock struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
	Pressure float64 `json:"pressure"`
}

type coordBlock struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type rainBlock struct {
	OneHour float64 `json:"1h"`
}

func (r response) snapshot() (domain.WeatherSnapshot, error) {
	if r.Main == nil {
		return domain.WeatherSnapshot{}, errors.New("decode response: missing main block")
	}
	if r.Coord == nil {
		return domain.WeatherSnapshot{}, errors.New("decode response: missing coord block")
	}

	snap := domain.WeatherSnapshot{
		Temperature: r.Main.Temp,
		Humidity:    r.Main.Humidity,
		Pressure:    r.Main.Pressure,
		Lat:         r.Coord.Lat,
		Lon:         r.Coord.Lon,
	}
	if r.Rain != nil {
		snap.Rainfall = r.Rain.OneHour
	}
	return snap, nil
}
