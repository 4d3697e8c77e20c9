package observability

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/weather-forecast-service/internal/traffic"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases, SLO breaches.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Failed forecast queries by category. Watch for: upstream vs caller-side failures.
	HTTPErrorsTotal *prometheus.CounterVec

	// OpenWeatherMap API call rate. Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// External API latency per request. Watch for: p95 > 2s (upstream degradation).
	WeatherAPIDuration *prometheus.HistogramVec

	// Upstream failures by category (timeout, location_not_found, ...).
	WeatherAPIErrorsTotal *prometheus.CounterVec

	// Total forecast queries. Watch for: traffic volume, rate() for QPS.
	ForecastQueriesTotal prometheus.Counter

	// Per-city query count (allow-list; others go to "other").
	ForecastQueriesByCityTotal *prometheus.CounterVec

	// Top-level fields resolved. Shows which derivations callers actually use.
	ForecastFieldsResolvedTotal *prometheus.CounterVec

	// Forecasts with no intervals; aggregates were rendered as null.
	DegenerateForecastsTotal prometheus.Counter

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	trackedCitiesMu sync.RWMutex
	trackedCities   map[string]struct{}

	rateLimitGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	HTTPErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpErrorsTotal",
			Help: "Failed forecast queries by error category",
		},
		[]string{"category"},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of OpenWeatherMap forecast API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiErrorsTotal",
			Help: "Upstream forecast fetch failures by error category",
		},
		[]string{"category"},
	)
	ForecastQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forecastQueriesTotal",
			Help: "Total number of forecast queries",
		},
	)
	ForecastQueriesByCityTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastQueriesByCityTotal",
			Help: "Forecast queries by city (allow-list; others use city=other)",
		},
		[]string{"city"},
	)
	ForecastFieldsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastFieldsResolvedTotal",
			Help: "Top-level forecast fields resolved, by field name",
		},
		[]string{"field"},
	)
	DegenerateForecastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "degenerateForecastsTotal",
			Help: "Forecasts returned with an empty interval list",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight, HTTPErrorsTotal,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIErrorsTotal,
		ForecastQueriesTotal, ForecastQueriesByCityTotal, ForecastFieldsResolvedTotal,
		DegenerateForecastsTotal,
		RateLimitDeniedTotal,
	)
}

// RegisterRateLimitGauges registers load and rejects gauges for the rate-limited path.
// Call from main after config load with cfg.OverloadWindow.
func RegisterRateLimitGauges(window time.Duration) {
	rateLimitGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited path in sliding window; load/capacity planning",
				},
				func() float64 { return float64(traffic.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window",
				},
				func() float64 { return float64(traffic.DenialCount(window)) },
			),
		)
	})
}

// SetTrackedCities sets the allow-list for per-city metrics. Other cities increment "other".
func SetTrackedCities(cities []string) {
	trackedCitiesMu.Lock()
	defer trackedCitiesMu.Unlock()
	trackedCities = make(map[string]struct{}, len(cities))
	for _, c := range cities {
		trackedCities[normalizeCityForMetrics(c)] = struct{}{}
	}
}

// RecordForecastQuery records a forecast query for city.
func RecordForecastQuery(city string) {
	ForecastQueriesTotal.Inc()
	ForecastQueriesByCityTotal.WithLabelValues(MetricCityLabel(city)).Inc()
}

// MetricCityLabel returns the normalized city if tracked, otherwise "other".
func MetricCityLabel(city string) string {
	c := normalizeCityForMetrics(city)
	trackedCitiesMu.RLock()
	_, ok := trackedCities[c] // nil map read is safe
	trackedCitiesMu.RUnlock()
	if ok {
		return c
	}
	return "other"
}

// RecordFieldsResolved counts each top-level field name once.
func RecordFieldsResolved(fields []string) {
	for _, f := range fields {
		ForecastFieldsResolvedTotal.WithLabelValues(f).Inc()
	}
}

func normalizeCityForMetrics(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
