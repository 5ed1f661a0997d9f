package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/harborline/harborline/internal/app"
	"github.com/harborline/harborline/internal/auth"
	"github.com/harborline/harborline/internal/authz"
	"github.com/harborline/harborline/internal/catalog"
	"github.com/harborline/harborline/internal/gate"
	"github.com/harborline/harborline/internal/identity"
	"github.com/harborline/harborline/internal/observability"
	"github.com/harborline/harborline/internal/orders"
	"github.com/harborline/harborline/internal/platform/cache"
	"github.com/harborline/harborline/internal/platform/db"
	"github.com/harborline/harborline/internal/shared"
	"github.com/harborline/harborline/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "hl_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	cookieSigner := gate.NewCookieSigner(cfg.CookieSecret, cfg.IsProduction())

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(logger, authRepo, sessionManager)

	identityRepo := identity.NewRepository(dbpool)
	identityService := identity.NewService(identityRepo, authService, logger)

	metrics := observability.NewMetrics()

	engine := authz.NewEngine(identityService, logger)
	authzMiddleware := authz.Middleware{Engine: engine, Logger: logger, Metrics: metrics}

	verifyPath := cfg.AdminPathPrefix + "/verify"
	passwordPath := cfg.AdminPathPrefix + "/password"
	guard := &gate.Guard{
		Signer:       cookieSigner,
		VerifyPath:   verifyPath,
		PasswordPath: passwordPath,
		Logger:       logger,
		Metrics:      metrics,
	}
	reconciler := gate.NewReconciler(logger, engine, identityService, cookieSigner, cfg.AdminPathPrefix, passwordPath)

	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo, engine, logger)
	ordersHandler := orders.NewHandler(logger, ordersService, authzMiddleware)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(logger, catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService, authzMiddleware)

	identityHandler := identity.NewHandler(logger, identityService, authzMiddleware)
	permissionsHandler := authz.NewPermissionsHandler(logger, authzMiddleware)
	authHandler := auth.NewHandler(logger, authService, sessionManager, cookieSigner)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		OrdersHandler:      ordersHandler,
		CatalogHandler:     catalogHandler,
		IdentityHandler:    identityHandler,
		PermissionsHandler: permissionsHandler,
		Guard:              guard,
		Reconciler:         reconciler,
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
