package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
)

// ForecastClient fetches raw forecasts from the upstream provider.
type ForecastClient interface {
	GetForecast(ctx context.Context, city string) (*models.RawForecast, error)
	ValidateAPIKey(ctx context.Context) error
}

var (
	ErrInvalidCity       = errors.New("city is required")
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrLocationNotFound  = errors.New("location not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// UpstreamError is returned for any failed upstream fetch. StatusCode is 0
// when no HTTP response was received.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream HTTP %d: %s", e.StatusCode, e.Message)
	}
	return "upstream: " + e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// UpstreamStatus returns the upstream HTTP status carried by err, or 0.
func UpstreamStatus(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}

const maxBodyBytes = 4 << 20

// OpenWeatherClient calls the OpenWeatherMap 5 day / 3 hour forecast endpoint.
// Exactly one HTTP request is made per GetForecast call; there is no retry.
type OpenWeatherClient struct {
	apiKey  string
	apiURL  string
	country string
	timeout time.Duration
	client  *http.Client
}

// NewOpenWeatherClient builds a client. country is appended to every city as
// the region qualifier (e.g. "us" yields q=Seattle,us); empty disables it.
func NewOpenWeatherClient(apiKey, apiURL, country string, timeout time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	return &OpenWeatherClient{
		apiKey:  apiKey,
		apiURL:  apiURL,
		country: strings.TrimSpace(country),
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// GetForecast fetches the raw forecast for city without transforming it.
func (c *OpenWeatherClient) GetForecast(ctx context.Context, city string) (*models.RawForecast, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrInvalidCity
	}

	start := time.Now()
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, city)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		msg := "http request failed"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			msg = "request timeout"
		}
		return nil, &UpstreamError{Message: msg, Err: err}
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: "read response body", Err: err}
	}

	if err := handleErrorResponse(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var raw models.RawForecast
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    "parse response",
			Err:        fmt.Errorf("%w: %v", ErrMalformedResponse, err),
		}
	}
	return &raw, nil
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, city string) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	q := city
	if c.country != "" {
		q = city + "," + c.country
	}
	params := baseURL.Query()
	params.Set("q", q)
	params.Set("appid", c.apiKey)
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// providerError is the body OpenWeatherMap sends alongside non-2xx statuses.
type providerError struct {
	Message string `json:"message"`
}

func handleErrorResponse(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := http.StatusText(statusCode)
	var pe providerError
	if json.Unmarshal(body, &pe) == nil && pe.Message != "" {
		msg = pe.Message
	}

	var sentinel error
	switch {
	case statusCode == http.StatusUnauthorized:
		sentinel = ErrInvalidAPIKey
	case statusCode == http.StatusNotFound:
		sentinel = ErrLocationNotFound
	case statusCode == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	default:
		sentinel = ErrUpstreamFailure
	}
	return &UpstreamError{StatusCode: statusCode, Message: msg, Err: sentinel}
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey probes the upstream with a known city to check the credential.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx, "London")
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}
	// London is not in every region qualifier; only the credential matters here.
	q := req.URL.Query()
	q.Set("q", "London")
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}
	return nil
}
