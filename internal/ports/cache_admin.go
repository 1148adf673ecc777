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

type clearCacheResponse struct {
	Message      string `json:"message"`
	OldCacheSize int    `json:"oldCacheSize"`
	NewCacheSize int    `json:"newCacheSize"`
}

func MakeClearCacheHandler(
	clearCache app.ClearCache,
	authMiddleware func(http.HandlerFunc) http.HandlerFunc,
	trackingMiddleware func(http.HandlerFunc) http.HandlerFunc,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("clear_cache"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("clear_cache"),
		trackingMiddleware,
		newMutationRateLimitMiddleware(),
		authMiddleware,
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		previousSize, newSize := clearCache(ctx)

		response, err := json.Marshal(clearCacheResponse{
			Message:      "Cache cleared successfully",
			OldCacheSize: previousSize,
			NewCacheSize: newSize,
		})
		if err != nil {
			reporting.Report(ctx, fmt.Errorf("failed to marshal success response: %w", err))
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
