package elevation

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

	"github.com/couchcryptid/hazard-risk-service/internal/observability"
	"github.com/sony/gobreaker/v2"
)

// DefaultBaseURL is the public Open-Elevation API root.
const DefaultBaseURL = "https://api.open-elevation.com"

// Client implements domain.ElevationProvider using the Open-Elevation lookup
// API. Calls run through a circuit breaker so a failing provider is skipped
// quickly instead of stalling every flood assessment.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker[float64]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Elevation client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		breaker:    newBreaker(logger),
		metrics:    metrics,
		logger:     logger,
	}
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker[float64] {
	return gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:        "open-elevation",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isProviderHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// errCallerGone marks a lookup abandoned because the caller's context ended.
var errCallerGone = errors.New("elevation lookup abandoned by caller")

// isProviderHealthy reports whether err says nothing bad about the provider.
// A caller giving up is not a provider failure; the client's own timeout is.
func isProviderHealthy(err error) bool {
	return err == nil || errors.Is(err, errCallerGone)
}

// Elevation returns the terrain elevation in meters at (lat, lon).
func (c *Client) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	params := url.Values{"locations": {fmt.Sprintf("%.6f,%.6f", lat, lon)}}
	fullURL := c.baseURL + "/api/v1/lookup?" + params.Encode()

	start := time.Now()
	v, err := c.breaker.Execute(func() (float64, error) {
		v, err := c.doRequest(ctx, fullURL)
		if err != nil && ctx.Err() != nil {
			return 0, fmt.Errorf("%w: %w", errCallerGone, ctx.Err())
		}
		return v, err
	})
	c.metrics.ElevationAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.ElevationRequests.WithLabelValues("success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.ElevationRequests.WithLabelValues("circuit_open").Inc()
	default:
		c.metrics.ElevationRequests.WithLabelValues("error").Inc()
	}
	return v, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("elevation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("open-elevation API error: status %d: %s", resp.StatusCode, body)
	}

	var elevResp response
	if err := json.NewDecoder(resp.Body).Decode(&elevResp); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if len(elevResp.Results) == 0 {
		return 0, errors.New("open-elevation returned no results")
	}
	return elevResp.Results[0].Elevation, nil
}

// Open-Elevation API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}
