package ports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/smoother-operators/memolith/internal/app"
	"github.com/smoother-operators/memolith/internal/domain"
	"github.com/smoother-operators/memolith/internal/engine"
	"github.com/smoother-operators/memolith/internal/logging"
	"github.com/smoother-operators/memolith/internal/ratelimiting"
	"github.com/smoother-operators/memolith/internal/reporting"
)

// Input used when the number query parameter is omitted
const defaultFibonacciInput = 10

type fibonacciSuccessResponse struct {
	Input     int64 `json:"input"`
	Result    int64 `json:"result"`
	CacheSize int   `json:"cacheSize"`
}

type fibonacciErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Input   int64  `json:"input"`
}

func writeFibonacciError(ctx context.Context, w http.ResponseWriter, statusCode int, errorLabel, message string, input int64) {
	response, err := json.Marshal(fibonacciErrorResponse{
		Error:   errorLabel,
		Message: message,
		Input:   input,
	})
	if err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to marshal error response: %w", err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(response)
}

// invalidInputMessage extracts the human readable part of a validation
// error, dropping the error chain prefixes.
func invalidInputMessage(err error) string {
	message := err.Error()
	if _, after, found := strings.Cut(message, domain.ErrInvalidInput.Error()+": "); found {
		return after
	}
	return message
}

func MakeFibonacciHandler(
	resolveFibonacci app.ResolveFibonacci,
	allowedOrigins *DomainSuffixes,
	trackingMiddleware func(http.HandlerFunc) http.HandlerFunc,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(8),
		ratelimiting.BurstSize(480),
	)
	ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		ipLimiter,
		ratelimiting.IPKeyFunc,
	)
	userIDLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(2),
		ratelimiting.BurstSize(120),
	)
	userIDRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		// NOTE: Rate limiting based on user controlled value
		userIDLimiter,
		ratelimiting.UserIDKeyFunc,
	)

	onLimitExceeded := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"Too many requests","message":"Rate limit exceeded"}`))
	}

	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("fibonacci"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("fibonacci"),
		trackingMiddleware,
		BuildCORSMiddleware(allowedOrigins),
		NewRateLimitMiddleware(ipRateLimiter, onLimitExceeded),
		NewRateLimitMiddleware(userIDRateLimiter, onLimitExceeded),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID := r.Header.Get("X-User-Id")
		ctx = reporting.SetUserIDInContext(ctx, userID)
		if userID == "" {
			userID = "<missing>"
		}

		rawNumber := r.URL.Query().Get("number")

		ctx = logging.AddMetaToContext(ctx,
			slog.String("userId", userID),
			slog.String("number", rawNumber),
		)
		ctx = reporting.AddExtrasToContext(ctx,
			map[string]string{
				"number": rawNumber,
			},
		)

		number := int64(defaultFibonacciInput)
		if rawNumber != "" {
			parsed, err := strconv.ParseInt(rawNumber, 10, 64)
			if err != nil {
				writeFibonacciError(ctx, w, http.StatusBadRequest, "Invalid input", fmt.Sprintf("number must be an integer, got %q", rawNumber), 0)
				return
			}
			number = parsed
		}

		result, err := resolveFibonacci(ctx, number)
		if errors.Is(err, domain.ErrInvalidInput) {
			writeFibonacciError(ctx, w, http.StatusBadRequest, "Invalid input", invalidInputMessage(err), number)
			return
		} else if errors.Is(err, engine.ErrResolveTimeout) {
			writeFibonacciError(ctx, w, http.StatusRequestTimeout, "Request timeout", "Calculation took too long", number)
			return
		}

		if err != nil {
			reporting.Report(ctx, fmt.Errorf("failed to resolve fibonacci number: %w", err))
			writeFibonacciError(ctx, w, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred", number)
			return
		}

		response, err := json.Marshal(fibonacciSuccessResponse{
			Input:     number,
			Result:    result.Value,
			CacheSize: result.CacheSizeAfter,
		})
		if err != nil {
			reporting.Report(ctx, fmt.Errorf("failed to marshal success response: %w", err))
			writeFibonacciError(ctx, w, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred", number)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(response)
	}

	return middleware(handler)
}
