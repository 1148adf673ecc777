package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/smoother-operators/memolith/internal/adapters/cache"
	"github.com/smoother-operators/memolith/internal/adapters/operatorrepository"
	"github.com/smoother-operators/memolith/internal/app"
	"github.com/smoother-operators/memolith/internal/config"
	"github.com/smoother-operators/memolith/internal/domain"
	"github.com/smoother-operators/memolith/internal/engine"
	"github.com/smoother-operators/memolith/internal/logging"
	"github.com/smoother-operators/memolith/internal/ports"
	"github.com/smoother-operators/memolith/internal/reporting"
	"github.com/smoother-operators/memolith/internal/telemetry"

	_ "golang.org/x/crypto/x509roots/fallback"
)

// TODO: Put in config
const PROD_DOMAIN_SUFFIX = "smootheroperators.com"
const STAGING_DOMAIN_SUFFIX = "smoother-operators.pages.dev"

func main() {
	ctx := context.Background()

	instanceID := uuid.New().String()
	logHandler := slog.Handler(slog.NewJSONHandler(os.Stdout, nil))
	if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" {
		logHandler = logging.NewGoogleCloudTracingLogHandler(logHandler, project)
	}
	logger := slog.New(logHandler).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	conf, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", conf.NonSensitiveString())

	if conf.InputCeiling() > domain.FibonacciInputCeiling {
		fail(
			"Configured input ceiling exceeds the largest input whose result fits in an int64",
			"inputCeiling", conf.InputCeiling(),
			"maximum", domain.FibonacciInputCeiling,
		)
	}

	otelShutdown, err := telemetry.SetupOTelSDK(ctx, "memolith")
	if err != nil {
		fail("Failed to initialize OpenTelemetry", "error", err.Error())
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
		}
	}()

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(conf)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	boundedCache, err := cache.NewBoundedCache[int64, int64](conf.CacheCapacity())
	if err != nil {
		fail("Failed to initialize cache", "error", err.Error())
	}

	validateInput := func(number int64) error {
		return domain.ValidateFibonacciInput(number, conf.InputCeiling())
	}
	eng, err := engine.NewEngine(boundedCache, validateInput, conf.ResolveDeadline(), time.Now, time.After)
	if err != nil {
		fail("Failed to initialize computation engine", "error", err.Error())
	}
	logger.Info(
		"Initialized computation engine",
		"cacheCapacity", conf.CacheCapacity(),
		"resolveDeadline", conf.ResolveDeadline().String(),
	)

	authMiddleware, err := ports.NewBearerAuthMiddlewareOrMock(conf, time.Now)
	if err != nil {
		fail("Failed to initialize authentication", "error", err.Error())
	}

	operatorRepo, err := operatorrepository.NewPostgresOrStub(ctx, conf, logger)
	if err != nil {
		fail("Failed to initialize OperatorRepository", "error", err.Error())
	}
	logger.Info("Initialized OperatorRepository")

	statusTracker := app.NewStatusTracker(time.Now)
	trackingMiddleware := ports.NewStatusTrackingMiddleware(statusTracker, time.Now)

	allowedOrigins, err := ports.NewDomainSuffixes(PROD_DOMAIN_SUFFIX, STAGING_DOMAIN_SUFFIX)
	if err != nil {
		fail("Failed to initialize allowed origins", "error", err.Error())
	}

	resolveFibonacci := app.BuildResolveFibonacci(eng)
	clearCache := app.BuildClearCache(eng)
	getServiceStatus := app.BuildGetServiceStatus(statusTracker, eng, time.Now)

	listOperators := app.BuildListOperators(operatorRepo)
	getOperator := app.BuildGetOperator(operatorRepo)
	createOperator := app.BuildCreateOperator(operatorRepo, time.Now)
	updateOperator := app.BuildUpdateOperator(operatorRepo, time.Now)
	deleteOperator := app.BuildDeleteOperator(operatorRepo)

	http.HandleFunc(
		"OPTIONS /api/hello",
		ports.BuildCORSHandler(allowedOrigins),
	)
	http.HandleFunc(
		"GET /api/hello",
		ports.MakeHelloHandler(
			allowedOrigins,
			trackingMiddleware,
			logger.With("port", "hello"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"OPTIONS /api/fibonacci",
		ports.BuildCORSHandler(allowedOrigins),
	)
	http.HandleFunc(
		"GET /api/fibonacci",
		ports.MakeFibonacciHandler(
			resolveFibonacci,
			allowedOrigins,
			trackingMiddleware,
			logger.With("port", "fibonacci"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"POST /api/cache/clear",
		ports.MakeClearCacheHandler(
			clearCache,
			authMiddleware,
			trackingMiddleware,
			logger.With("port", "clearcache"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"OPTIONS /api/check-status",
		ports.BuildCORSHandler(allowedOrigins),
	)
	http.HandleFunc(
		"GET /api/check-status",
		ports.MakeCheckStatusHandler(
			getServiceStatus,
			allowedOrigins,
			trackingMiddleware,
			logger.With("port", "checkstatus"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"GET /api/health",
		ports.MakeHealthHandler(
			logger.With("port", "health"),
			sentryMiddleware,
		),
	)

	http.HandleFunc("GET /metrics", promhttp.Handler().ServeHTTP)

	http.HandleFunc(
		"GET /api/v1/operators",
		ports.MakeListOperatorsHandler(
			listOperators,
			trackingMiddleware,
			logger.With("port", "listoperators"),
			sentryMiddleware,
		),
	)
	http.HandleFunc(
		"POST /api/v1/operators",
		ports.MakeCreateOperatorHandler(
			createOperator,
			authMiddleware,
			trackingMiddleware,
			logger.With("port", "createoperator"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"GET /api/v1/operators/{id}",
		ports.MakeGetOperatorHandler(
			getOperator,
			trackingMiddleware,
			logger.With("port", "getoperator"),
			sentryMiddleware,
		),
	)
	http.HandleFunc(
		"PUT /api/v1/operators/{id}",
		ports.MakeUpdateOperatorHandler(
			updateOperator,
			authMiddleware,
			trackingMiddleware,
			logger.With("port", "updateoperator"),
			sentryMiddleware,
		),
	)
	http.HandleFunc(
		"DELETE /api/v1/operators/{id}",
		ports.MakeDeleteOperatorHandler(
			deleteOperator,
			authMiddleware,
			trackingMiddleware,
			logger.With("port", "deleteoperator"),
			sentryMiddleware,
		),
	)

	logger.Info("Init complete")
	err = http.ListenAndServe(
		fmt.Sprintf(":%s", conf.Port()),
		// Server spans parent the repository spans and let the log handler
		// attach trace ids to request logs
		otelhttp.NewHandler(http.DefaultServeMux, "memolith"),
	)
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}
}
