package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-forecast-service/internal/observability"
)

// RouterConfig configures NewRouter. A nil Limiter disables rate limiting; a
// zero RequestTimeout leaves forecast requests without a deadline.
type RouterConfig struct {
	Logger         *zap.Logger
	Limiter        *rate.Limiter
	RequestTimeout time.Duration
}

// NewRouter wires the routes:
//
//	GET  /forecast/{city}?fields=...
//	POST /forecast
//	GET  /health
//	GET  /metrics
//
// Rate limiting and the request timeout apply to /forecast routes only.
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	forecastRouter := router.PathPrefix("/forecast").Subrouter()
	forecastRouter.Use(RateLimitMiddleware(cfg.Limiter))
	if cfg.RequestTimeout > 0 {
		forecastRouter.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	forecastRouter.HandleFunc("/{city}", h.GetForecast).Methods(http.MethodGet)
	forecastRouter.HandleFunc("", h.PostForecast).Methods(http.MethodPost)

	return router
}
