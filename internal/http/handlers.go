package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-service/internal/client"
	"github.com/kjstillabower/weather-forecast-service/internal/forecast"
	"github.com/kjstillabower/weather-forecast-service/internal/lifecycle"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
	"github.com/kjstillabower/weather-forecast-service/internal/service"
	"github.com/kjstillabower/weather-forecast-service/internal/traffic"
)

// maxRequestBodyBytes bounds POST /forecast bodies.
const maxRequestBodyBytes = 64 << 10

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow         time.Duration
	OverloadThresholdPct   int
	RateLimitRPS           int // 0 when rate limiter disabled
	DegradedWindow         time.Duration
	DegradedErrorPct       int
	IdleWindow             time.Duration
	IdleThresholdReqPerMin int
	MinimumLifespan        time.Duration
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	forecastService  *service.ForecastService
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. healthConfig may be nil, in which case
// health only reflects shutdown and API key validity.
func NewHandler(forecastService *service.ForecastService, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		forecastService: forecastService,
		healthConfig:    healthConfig,
		logger:          logger,
	}
}

// forecastRequest is the POST /forecast body.
type forecastRequest struct {
	City   string   `json:"city"`
	Fields []string `json:"fields"`
}

// GetForecast handles GET /forecast/{city}?fields=a,b.c
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	city := mux.Vars(r)["city"]
	sel, err := forecast.ParseSelection(r.URL.Query()["fields"]...)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	h.serveForecast(w, r, city, sel)
}

// PostForecast handles POST /forecast with a JSON body {"city": "...", "fields": [...]}.
func (h *Handler) PostForecast(w http.ResponseWriter, r *http.Request) {
	var body forecastRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		observability.HTTPErrorsTotal.WithLabelValues(string(client.ErrorCategoryValidation)).Inc()
		writeError(w, r, http.StatusBadRequest, "INVALID_INPUT", "request body must be JSON {\"city\": string, \"fields\": [string]}", 0)
		return
	}
	sel, err := forecast.ParseSelection(body.Fields...)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	h.serveForecast(w, r, body.City, sel)
}

func (h *Handler) serveForecast(w http.ResponseWriter, r *http.Request, city string, sel forecast.Selection) {
	result, err := h.forecastService.Query(r.Context(), city, sel)
	if err != nil {
		switch {
		case isCallerError(err):
		case errors.Is(err, client.ErrLocationNotFound):
			// The upstream answered; an unknown city says nothing about its health.
			traffic.RecordSuccess()
		default:
			traffic.RecordError()
		}
		writeQueryError(w, r, err)
		return
	}
	traffic.RecordSuccess()
	writeJSON(w, http.StatusOK, result)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weatherApi": "healthy"}
	if result.status == "degraded" {
		checks["weatherApi"] = "unhealthy"
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"version":   "dev",
		"uptime":    lifecycle.Uptime().Round(time.Second).String(),
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if result.reason != "" {
		resp["reason"] = result.reason
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > API key invalid > overloaded > idle > degraded > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if err := h.forecastService.ValidateAPIKey(ctx); err != nil {
		return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_invalid"}
	}
	hc := h.healthConfig
	if hc == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}

	if hc.RateLimitRPS > 0 && hc.OverloadWindow > 0 {
		threshold := float64(hc.RateLimitRPS) * hc.OverloadWindow.Seconds() * float64(hc.OverloadThresholdPct) / 100
		if float64(traffic.RequestCount(hc.OverloadWindow)) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}
	// Idle only applies once the process has outlived its minimum lifespan.
	if hc.IdleWindow > 0 && hc.MinimumLifespan > 0 && lifecycle.Uptime() >= hc.MinimumLifespan {
		perMinute := float64(traffic.QueryCount(hc.IdleWindow)) / hc.IdleWindow.Minutes()
		if perMinute < float64(hc.IdleThresholdReqPerMin) {
			return healthResult{"idle", http.StatusOK, "low_traffic"}
		}
	}
	if hc.DegradedWindow > 0 && hc.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(hc.DegradedWindow)
		if total > 0 && float64(errs)*100/float64(total) >= float64(hc.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// isCallerError reports whether err is the caller's fault (bad city or field selection).
func isCallerError(err error) bool {
	return service.IsInvalidInput(err) || errors.Is(err, forecast.ErrInvalidSelection)
}

// writeQueryError maps a forecast query failure onto the error envelope.
func writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context())

	if isCallerError(err) {
		observability.HTTPErrorsTotal.WithLabelValues(string(client.ErrorCategoryValidation)).Inc()
		writeError(w, r, http.StatusBadRequest, "INVALID_INPUT", invalidInputMessage(err), 0)
		return
	}

	category := client.CategorizeError(err)
	observability.HTTPErrorsTotal.WithLabelValues(string(category)).Inc()
	upstreamStatus := client.UpstreamStatus(err)
	logger.Debug("forecast query failed", zap.String("category", string(category)), zap.Error(err))

	if errors.Is(err, client.ErrLocationNotFound) {
		writeError(w, r, http.StatusNotFound, "LOCATION_NOT_FOUND", "city not found", upstreamStatus)
		return
	}
	message := "Unable to fetch forecast"
	var ue *client.UpstreamError
	if errors.As(err, &ue) && ue.Message != "" {
		message += ": " + ue.Message
	}
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_ERROR", message, upstreamStatus)
}

// invalidInputMessage strips the wrapping sentinel so callers see only the cause.
func invalidInputMessage(err error) string {
	msg := err.Error()
	return strings.TrimPrefix(msg, service.ErrInvalidInput.Error()+": ")
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorDetail struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	RequestID      string `json:"requestId"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

// writeError writes the standard error envelope. upstreamStatus is omitted when 0.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, upstreamStatus int) {
	writeJSON(w, status, map[string]errorDetail{
		"error": {
			Code:           code,
			Message:        message,
			RequestID:      observability.CorrelationID(r.Context()),
			UpstreamStatus: upstreamStatus,
		},
	})
}
