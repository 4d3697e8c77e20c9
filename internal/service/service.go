package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-service/internal/client"
	"github.com/kjstillabower/weather-forecast-service/internal/forecast"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
	"github.com/kjstillabower/weather-forecast-service/internal/validation"
)

// ErrInvalidInput wraps every caller-side rejection (bad city, unknown field).
// Nothing is fetched when it is returned.
var ErrInvalidInput = errors.New("invalid input")

// ForecastService validates a forecast query, fetches the raw forecast exactly
// once and resolves the selected fields against it. It holds no per-query state.
type ForecastService struct {
	client     client.ForecastClient
	minCityLen int
	maxCityLen int
}

// NewForecastService creates a ForecastService. minCityLen and maxCityLen bound
// the accepted city name length in runes.
func NewForecastService(c client.ForecastClient, minCityLen, maxCityLen int) *ForecastService {
	return &ForecastService{
		client:     c,
		minCityLen: minCityLen,
		maxCityLen: maxCityLen,
	}
}

// Forecast validates city and returns a view over the freshly fetched forecast.
func (s *ForecastService) Forecast(ctx context.Context, city string) (*forecast.View, error) {
	normalized, err := validation.ValidateCity(city, s.minCityLen, s.maxCityLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	logger := observability.LoggerFromContext(ctx)
	start := time.Now()
	observability.RecordForecastQuery(normalized)

	raw, err := s.client.GetForecast(ctx, normalized)
	if err != nil {
		category := client.CategorizeError(err)
		observability.WeatherAPIErrorsTotal.WithLabelValues(string(category)).Inc()
		logger.Warn("forecast fetch failed",
			zap.String("city", normalized),
			zap.String("category", string(category)),
			zap.Int("upstream_status", client.UpstreamStatus(err)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("fetch forecast for %s: %w", normalized, err)
	}

	view := forecast.NewView(raw)
	if view.IsDegenerate() {
		observability.DegenerateForecastsTotal.Inc()
		logger.Warn("forecast has no intervals", zap.String("city", normalized), zap.Int("cnt", raw.Cnt))
	}
	logger.Debug("forecast fetched",
		zap.String("city", normalized),
		zap.Int("intervals", len(raw.List)),
		zap.Duration("duration", time.Since(start)),
	)
	return view, nil
}

// Query answers sel for city. The selection is checked before anything is
// fetched; an empty selection resolves every field.
func (s *ForecastService) Query(ctx context.Context, city string, sel forecast.Selection) (map[string]any, error) {
	if err := forecast.Schema.Validate(sel); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	view, err := s.Forecast(ctx, city)
	if err != nil {
		return nil, err
	}

	observability.RecordFieldsResolved(topLevelFields(sel))
	return forecast.Schema.Resolve(view, sel), nil
}

// ValidateAPIKey checks the upstream credential; used at startup.
func (s *ForecastService) ValidateAPIKey(ctx context.Context) error {
	return s.client.ValidateAPIKey(ctx)
}

// IsInvalidInput reports whether err is a caller-side rejection.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func topLevelFields(sel forecast.Selection) []string {
	if len(sel) == 0 {
		names := make([]string, 0, len(forecast.Schema.Fields))
		for _, f := range forecast.Schema.Fields {
			names = append(names, f.Name)
		}
		return names
	}
	names := make([]string, 0, len(sel))
	for name := range sel {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
