package ports

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/smoother-operators/memolith/internal/app"
	"github.com/smoother-operators/memolith/internal/logging"
	"github.com/smoother-operators/memolith/internal/reporting"
)

type checkStatusResponse struct {
	Status          string  `json:"status"`
	Timestamp       int64   `json:"timestamp"`
	Requests        int64   `json:"requests"`
	Errors          int64   `json:"errors"`
	ErrorRate       float64 `json:"errorRate"`
	CacheSize       int     `json:"cacheSize"`
	LastRequestTime int64   `json:"lastRequestTime"`
}

func MakeCheckStatusHandler(
	getServiceStatus app.GetServiceStatus,
	allowedOrigins *DomainSuffixes,
	trackingMiddleware func(http.HandlerFunc) http.HandlerFunc,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("check_status"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("check_status"),
		trackingMiddleware,
		BuildCORSMiddleware(allowedOrigins),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status := getServiceStatus(ctx)

		response, err := json.Marshal(checkStatusResponse{
			Status:          "UP",
			Timestamp:       status.Timestamp,
			Requests:        status.Requests,
			Errors:          status.Errors,
			ErrorRate:       status.ErrorRate,
			CacheSize:       status.CacheSize,
			LastRequestTime: status.LastRequestTime,
		})
		if err != nil {
			reporting.Report(ctx, fmt.Errorf("failed to marshal status response: %w", err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"Internal server error"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(response)
	}

	return middleware(handler)
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// MakeHealthHandler serves liveness probes. Probe traffic does not count
// towards the request totals reported by check-status.
func MakeHealthHandler(
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("health"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("health"),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		response, err := json.Marshal(healthResponse{
			Status:  "UP",
			Service: "memolith",
		})
		if err != nil {
			reporting.Report(ctx, fmt.Errorf("failed to marshal health response: %w", err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"Internal server error"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(response)
	}

	return middleware(handler)
}

func MakeHelloHandler(
	allowedOrigins *DomainSuffixes,
	trackingMiddleware func(http.HandlerFunc) http.HandlerFunc,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("hello"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("hello"),
		trackingMiddleware,
		BuildCORSMiddleware(allowedOrigins),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Hello from Smoother Operators!"))
	}

	return middleware(handler)
}
