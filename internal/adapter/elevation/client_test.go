package elevation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/hazard-risk-service/internal/observability"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string) *Client {
	logger := discardLogger()
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		breaker:    newBreaker(logger),
		metrics:    observability.NewMetricsForTesting(),
		logger:     logger,
	}
}

func TestClient_Elevation_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/lookup", r.URL.Path)
		assert.Equal(t, "13.080000,80.270000", r.URL.Query().Get("locations"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"results":[{"latitude":13.08,"longitude":80.27,"elevation":6.0}]}`))
	}))
	defer srv.Close()

	v, err := testClient(srv.URL).Elevation(context.Background(), 13.08, 80.27)
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)
}

func TestClient_Elevation_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Elevation(context.Background(), 13.08, 80.27)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_Elevation_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Elevation(context.Background(), 0, 0)
	require.Error(t, err)
}

func TestClient_Elevation_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for i := 0; i < 5; i++ {
		_, err := c.Elevation(context.Background(), 1, 1)
		require.Error(t, err)
	}

	_, err := c.Elevation(context.Background(), 1, 1)
	require.True(t, errors.Is(err, gobreaker.ErrOpenState), "got %v", err)
	assert.Equal(t, int32(5), calls.Load(), "open breaker short-circuits the call")
}

func TestClient_Elevation_CanceledCallsDoNotOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"results":[{"latitude":1,"longitude":1,"elevation":42.0}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 6; i++ {
		_, err := c.Elevation(canceled, 1, 1)
		require.ErrorIs(t, err, context.Canceled)
	}

	v, err := c.Elevation(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Elevation_ClientTimeoutsStillOpenBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient = &http.Client{Timeout: 10 * time.Millisecond}
	for i := 0; i < 5; i++ {
		_, err := c.Elevation(context.Background(), 1, 1)
		require.Error(t, err)
	}

	_, err := c.Elevation(context.Background(), 1, 1)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestIsProviderHealthy(t *testing.T) {
	assert.True(t, isProviderHealthy(nil))
	assert.True(t, isProviderHealthy(fmt.Errorf("%w: %w", errCallerGone, context.Canceled)))
	assert.False(t, isProviderHealthy(fmt.Errorf("elevation request: %w", context.DeadlineExceeded)))
	assert.False(t, isProviderHealthy(errors.New("open-elevation API error: status 503")))
}

func TestNewClient_DefaultsBaseURL(t *testing.T) {
	c := NewClient("", time.Second, observability.NewMetricsForTesting(), discardLogger())
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
