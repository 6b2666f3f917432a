package openweather

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey           = "test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

const chennaiBody = `{
  "coord": {"lon": 80.27, "lat": 13.08},
  "main": {"temp": 31, "feels_like": 37.2, "pressure": 1005, "humidity": 80},
  "rain": {"1h": 2.0},
  "name": "Chennai",
  "cod": 200
}`

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:     testKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_Current_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "Chennai", r.URL.Query().Get("q"))
		assert.Equal(t, testKey, r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(chennaiBody))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	snap, err := c.Current(context.Background(), "Chennai")
	require.NoError(t, err)

	assert.Equal(t, domain.WeatherSnapshot{
		Temperature: 31,
		Humidity:    80,
		Pressure:    1005,
		Rainfall:    2.0,
		Lat:         13.08,
		Lon:         80.27,
	}, snap)
}

func TestClient_Current_NoRainDefaultsToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"coord":{"lon":72.88,"lat":19.07},"main":{"temp":29,"pressure":1009,"humidity":70}}`))
	}))
	defer srv.Close()

	snap, err := testClient(srv.URL).Current(context.Background(), "Mumbai")
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.Rainfall)
	assert.Equal(t, 19.07, snap.Lat)
}

func TestClient_Current_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()

	snap, err := testClient(srv.URL).Current(context.Background(), "Atlantis")
	require.ErrorIs(t, err, domain.ErrCityNotFound)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, domain.WeatherSnapshot{}, snap)
}

func TestClient_Current_ProviderErrorIsLookupFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	snap, err := testClient(srv.URL).Current(context.Background(), "Chennai")
	require.ErrorIs(t, err, domain.ErrCityNotFound)
	assert.Equal(t, domain.WeatherSnapshot{}, snap)
}

func TestClient_Current_PartialBodyIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"main":{"temp":31,"pressure":1005,"humidity":80}}`))
	}))
	defer srv.Close()

	snap, err := testClient(srv.URL).Current(context.Background(), "Chennai")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coord")
	assert.Equal(t, domain.WeatherSnapshot{}, snap)
}

func TestClient_Current_EmptyCitySkipsRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Current(context.Background(), "   ")
	require.ErrorIs(t, err, domain.ErrCityNotFound)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_Current_OneRequestPerCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Current(context.Background(), "Chennai")
	require.Error(t, err)
	_, err = c.Current(context.Background(), "Chennai")
	require.Error(t, err)

	assert.Equal(t, int32(2), calls.Load(), "no retries and no caching")
}

func TestClient_Current_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	snap, err := c.Current(context.Background(), "Chennai")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCityNotFound)
	assert.Equal(t, domain.WeatherSnapshot{}, snap)
}

func TestNewClient_DefaultsBaseURL(t *testing.T) {
	c := NewClient(testKey, "", time.Second, observability.NewMetricsForTesting(), slog.Default())
	assert.Equal(t, DefaultBaseURL, c.baseURL)

	c = NewClient(testKey, "http://localhost:9999/", time.Second, observability.NewMetricsForTesting(), slog.Default())
	assert.Equal(t, "http://localhost:9999", c.baseURL)
}

func loggingClient(baseURL string, buf *bytes.Buffer) *Client {
	c := testClient(baseURL)
	c.logger = slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return c
}

func TestClient_Current_ProviderFailuresAreLogged(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"invalid api key", http.StatusUnauthorized},
		{"provider outage", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			var buf bytes.Buffer
			_, err := loggingClient(srv.URL, &buf).Current(context.Background(), "Chennai")
			require.ErrorIs(t, err, domain.ErrCityNotFound)

			out := buf.String()
			assert.Contains(t, out, `"level":"WARN"`)
			assert.Contains(t, out, `"city":"Chennai"`)
			assert.Contains(t, out, `"error"`)
		})
	}
}

func TestClient_Current_TransportFailureIsLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	var buf bytes.Buffer
	_, err := loggingClient(baseURL, &buf).Current(context.Background(), "Chennai")
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"status":0`)
}

func TestClient_Current_NotFoundStaysQuiet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	_, err := loggingClient(srv.URL, &buf).Current(context.Background(), "Atlantis")
	require.ErrorIs(t, err, domain.ErrCityNotFound)
	assert.Empty(t, buf.String())
}
