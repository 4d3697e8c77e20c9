package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weather-forecast-service/internal/observability"
)

const testForecastURL = "https://api.test.com/data/2.5/forecast"

const forecastJSON = `{
  "cod": "200",
  "message": 0,
  "cnt": 2,
  "list": [
    {
      "dt": 1700000000,
      "main": {"temp": 300, "feels_like": 299.5, "temp_min": 298.2, "temp_max": 301.4,
               "pressure": 1000, "sea_level": 1000, "grnd_level": 990, "humidity": 50, "temp_kf": 1.2},
      "weather": [{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"}],
      "clouds": {"all": 75},
      "wind": {"speed": 3.2, "deg": 240, "gust": 5.1},
      "visibility": 10000,
      "pop": 0.42,
      "dt_txt": "2023-11-14 22:00:00"
    },
    {
      "dt": 1700010800,
      "main": {"temp": 310, "pressure": 1020, "humidity": 60},
      "weather": [],
      "pop": 0,
      "dt_txt": "2023-11-15 01:00:00"
    }
  ],
  "city": {
    "id": 5809844, "name": "Seattle", "coord": {"lat": 47.6062, "lon": -122.3321},
    "country": "US", "population": 608660, "timezone": -28800,
    "sunrise": 1699975424, "sunset": 1700009312
  }
}`

func newTestClient(t *testing.T, apiURL string) *OpenWeatherClient {
	t.Helper()
	c, err := NewOpenWeatherClient("test-api-key-12345", apiURL, "us", 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return c
}

func TestNewOpenWeatherClient_InvalidAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr error
	}{
		{
			name:    "empty API key",
			apiKey:  "",
			wantErr: ErrInvalidAPIKey,
		},
		{
			name:    "too short API key",
			apiKey:  "short",
			wantErr: ErrInvalidAPIKey,
		},
		{
			name:    "valid API key",
			apiKey:  "valid-api-key-12345",
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewOpenWeatherClient(tt.apiKey, testForecastURL, "us", 2*time.Second)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("NewOpenWeatherClient() expected error, got nil")
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewOpenWeatherClient() error = %v, want %v", err, tt.wantErr)
				}
				if client != nil {
					t.Errorf("NewOpenWeatherClient() expected nil client on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewOpenWeatherClient() unexpected error: %v", err)
			}
		})
	}
}

func TestOpenWeatherClient_GetForecast_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.URL.Query().Get("q"); got != "Seattle,us" {
			t.Errorf("q = %q, want %q", got, "Seattle,us")
		}
		if got := r.URL.Query().Get("appid"); got != "test-api-key-12345" {
			t.Errorf("appid = %q, want test key", got)
		}
		if r.URL.Query().Has("units") {
			t.Errorf("units must not be set; derivations expect Kelvin")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(forecastJSON))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	got, err := c.GetForecast(context.Background(), " Seattle ")
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}

	if got.Cod != "200" || got.Cnt != 2 || len(got.List) != 2 {
		t.Fatalf("unexpected envelope: cod=%q cnt=%d len=%d", got.Cod, got.Cnt, len(got.List))
	}
	if got.City.Name != "Seattle" || got.City.Country != "US" || got.City.Timezone != -28800 {
		t.Errorf("City = %+v", got.City)
	}
	if got.City.Coord.Lat != 47.6062 || got.City.Coord.Lon != -122.3321 {
		t.Errorf("Coord = %+v", got.City.Coord)
	}
	first := got.List[0]
	if first.Main.Temp != 300 || first.Main.FeelsLike != 299.5 || first.Main.GrndLevel != 990 || first.Main.TempKf != 1.2 {
		t.Errorf("Main = %+v", first.Main)
	}
	if first.Pop != 0.42 || first.Visibility != 10000 || first.DtTxt != "2023-11-14 22:00:00" {
		t.Errorf("Interval = %+v", first)
	}
	if len(first.Weather) != 1 || first.Weather[0].Description != "light rain" || first.Weather[0].Icon != "10d" {
		t.Errorf("Weather = %+v", first.Weather)
	}
	if got.List[1].Main.Temp != 310 {
		t.Errorf("list order not preserved: %+v", got.List[1].Main)
	}
}

func TestOpenWeatherClient_GetForecast_NoCountryQualifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Paris" {
			t.Errorf("q = %q, want Paris", got)
		}
		_, _ = w.Write([]byte(`{"cod":"200","cnt":0,"list":[]}`))
	}))
	defer server.Close()

	c, err := NewOpenWeatherClient("test-api-key-12345", server.URL, "", time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	if _, err := c.GetForecast(context.Background(), "Paris"); err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}
}

func TestOpenWeatherClient_GetForecast_ErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    error
		wantMsg    string
	}{
		{"401 unauthorized", http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key"}`, ErrInvalidAPIKey, "Invalid API key"},
		{"404 not found", http.StatusNotFound, `{"cod":"404","message":"city not found"}`, ErrLocationNotFound, "city not found"},
		{"429 rate limited", http.StatusTooManyRequests, ``, ErrRateLimited, "Too Many Requests"},
		{"500 server error", http.StatusInternalServerError, `oops`, ErrUpstreamFailure, "Internal Server Error"},
		{"502 bad gateway", http.StatusBadGateway, ``, ErrUpstreamFailure, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL)
			got, err := c.GetForecast(context.Background(), "seattle")
			if err == nil {
				t.Fatal("GetForecast() expected error, got nil")
			}
			if got != nil {
				t.Errorf("GetForecast() returned partial data %+v", got)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			var ue *UpstreamError
			if !errors.As(err, &ue) {
				t.Fatalf("error %T is not *UpstreamError", err)
			}
			if ue.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", ue.StatusCode, tt.statusCode)
			}
			if ue.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", ue.Message, tt.wantMsg)
			}
			if calls != 1 {
				t.Errorf("upstream calls = %d, want exactly 1 (no retry)", calls)
			}
		})
	}
}

func TestOpenWeatherClient_GetForecast_EmptyCity(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	for _, city := range []string{"", "   "} {
		_, err := c.GetForecast(context.Background(), city)
		if !errors.Is(err, ErrInvalidCity) {
			t.Errorf("GetForecast(%q) error = %v, want ErrInvalidCity", city, err)
		}
	}
	if calls != 0 {
		t.Errorf("upstream calls = %d, want 0", calls)
	}
}

func TestOpenWeatherClient_GetForecast_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c, err := NewOpenWeatherClient("test-api-key-12345", server.URL, "us", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	_, err = c.GetForecast(context.Background(), "seattle")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if UpstreamStatus(err) != 0 {
		t.Errorf("UpstreamStatus = %d, want 0 for transport failure", UpstreamStatus(err))
	}
	if got := CategorizeError(err); got != ErrorCategoryTimeout {
		t.Errorf("CategorizeError = %v, want timeout", got)
	}
}

func TestOpenWeatherClient_ForwardsCorrelationID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Correlation-ID"); got != "abc-123" {
			t.Errorf("X-Correlation-ID = %q, want abc-123", got)
		}
		_, _ = w.Write([]byte(`{"cod":"200","list":[]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := observability.WithCorrelationID(context.Background(), "abc-123")
	if _, err := c.GetForecast(ctx, "seattle"); err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}
}

// The remaining tests swap the client's transport for an httpmock transport.

func TestOpenWeatherClient_GetForecast_MalformedJSON(t *testing.T) {
	c := newTestClient(t, testForecastURL)
	mt := httpmock.NewMockTransport()
	c.client.Transport = mt
	mt.RegisterResponder(http.MethodGet, testForecastURL, httpmock.NewStringResponder(http.StatusOK, `{invalid json`))

	got, err := c.GetForecast(context.Background(), "seattle")

	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, http.StatusOK, UpstreamStatus(err))
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestOpenWeatherClient_GetForecast_NotFoundViaMock(t *testing.T) {
	c := newTestClient(t, testForecastURL)
	mt := httpmock.NewMockTransport()
	c.client.Transport = mt
	mt.RegisterResponder(http.MethodGet, testForecastURL,
		httpmock.NewStringResponder(http.StatusNotFound, `{"cod":"404","message":"city not found"}`))

	got, err := c.GetForecast(context.Background(), "atlantis")

	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, http.StatusNotFound, UpstreamStatus(err))
	assert.ErrorIs(t, err, ErrLocationNotFound)
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestOpenWeatherClient_ValidateAPIKey(t *testing.T) {
	c := newTestClient(t, testForecastURL)
	mt := httpmock.NewMockTransport()
	c.client.Transport = mt

	mt.RegisterResponder(http.MethodGet, testForecastURL, httpmock.NewStringResponder(http.StatusOK, `{"cod":"200","list":[]}`))
	assert.NoError(t, c.ValidateAPIKey(context.Background()))

	mt.RegisterResponder(http.MethodGet, testForecastURL, httpmock.NewStringResponder(http.StatusUnauthorized, `{}`))
	assert.ErrorIs(t, c.ValidateAPIKey(context.Background()), ErrInvalidAPIKey)

	mt.RegisterResponder(http.MethodGet, testForecastURL, httpmock.NewStringResponder(http.StatusBadGateway, ``))
	err := c.ValidateAPIKey(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidAPIKey)
}
