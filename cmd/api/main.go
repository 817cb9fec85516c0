package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/pagelift/api/internal/di"
	"github.com/pagelift/api/internal/handlers"
	"github.com/pagelift/api/internal/platform/config"
	pfirestore "github.com/pagelift/api/internal/platform/firestore"
	"github.com/pagelift/api/internal/platform/idempotency"
	"github.com/pagelift/api/internal/platform/jobs"
	"github.com/pagelift/api/internal/platform/observability"
	"github.com/pagelift/api/internal/platform/secrets"
	firestoreRepo "github.com/pagelift/api/internal/repositories/firestore"
	"github.com/pagelift/api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.Names()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()

	containerOpts := []di.ContainerOption{
		di.WithLogger(logger),
		di.WithBuildInfo(buildInfoFromEnv(cfg, startedAt)),
	}

	var pubsubClient *pubsub.Client
	if cfg.Features.EnableOrderEvents {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		publisher, err := jobs.NewPubSubOrderEventPublisher(pubsubClient.Topic(cfg.Events.OrderTopic))
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		containerOpts = append(containerOpts, di.WithOrderEventPublisher(publisher))
	}
	defer func() {
		if pubsubClient != nil {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}
	}()

	container, err := di.NewContainer(ctx, cfg, registry, containerOpts...)
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}

	pageHandlers, err := handlers.NewPageHandlers(handlers.PageHandlersDeps{
		Content:           container.Services.Content,
		RequestsPerMinute: cfg.RateLimits.PagesPerMinute,
		Logger:            handlerLogger(logger.Named("pages")),
	})
	if err != nil {
		logger.Fatal("failed to initialise page handlers", zap.Error(err))
	}
	checkoutHandlers, err := handlers.NewCheckoutHandlers(handlers.CheckoutHandlersDeps{
		Checkout:          container.Services.Checkout,
		RequestsPerMinute: cfg.RateLimits.CheckoutPerMinute,
		Logger:            handlerLogger(logger.Named("checkout")),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout handlers", zap.Error(err))
	}
	adminHandlers, err := handlers.NewAdminPageHandlers(handlers.AdminPageHandlersDeps{
		Pages:      container.Services.Pages,
		Generation: container.Services.Generation,
		Logger:     handlerLogger(logger.Named("admin")),
	})
	if err != nil {
		logger.Fatal("failed to initialise admin handlers", zap.Error(err))
	}

	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to obtain firestore client", zap.Error(err))
	}
	idemStore := idempotency.NewFirestoreStore(firestoreClient)
	idemMiddleware := idempotency.Middleware(idemStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	var cleanupWG sync.WaitGroup
	cleanupWG.Add(1)
	go func() {
		defer cleanupWG.Done()
		runIdempotencyCleanup(cleanupCtx, idemStore, cfg.Idempotency, logger.Named("idempotency"))
	}()

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithSystemService(container.Services.System),
	)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(cfg.Firestore.ProjectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(cfg.Firestore.ProjectID),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPageRoutes(pageHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithCheckoutMiddlewares(idemMiddleware),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("pagelift api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	stopCleanup()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func runIdempotencyCleanup(ctx context.Context, store *idempotency.FirestoreStore, cfg config.IdempotencyConfig, logger *zap.Logger) {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := store.CleanupExpired(ctx, now.UTC(), cfg.CleanupBatchSize)
			if err != nil {
				logger.Warn("idempotency cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("idempotency records purged", zap.Int("count", removed))
			}
		}
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
	}
	if project := strings.TrimSpace(os.Getenv("PAGELIFT_SECRET_PROJECT_ID")); project != "" {
		opts = append(opts, secrets.WithDefaultProject(project))
	} else if project := strings.TrimSpace(os.Getenv("PAGELIFT_FIRESTORE_PROJECT_ID")); project != "" {
		opts = append(opts, secrets.WithDefaultProject(project))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func buildInfoFromEnv(cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("PAGELIFT_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		Environment: environment,
		StartedAt:   started,
	}
}

func handlerLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Warn(event, zFields...)
	}
}
