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

	"github.com/meridian-hq/meridian-admin/internal/app"
	"github.com/meridian-hq/meridian-admin/internal/audit"
	audithttp "github.com/meridian-hq/meridian-admin/internal/audit/http"
	"github.com/meridian-hq/meridian-admin/internal/auth"
	"github.com/meridian-hq/meridian-admin/internal/cache"
	"github.com/meridian-hq/meridian-admin/internal/dashboard"
	"github.com/meridian-hq/meridian-admin/internal/observability"
	platformcache "github.com/meridian-hq/meridian-admin/internal/platform/cache"
	"github.com/meridian-hq/meridian-admin/internal/platform/db"
	"github.com/meridian-hq/meridian-admin/internal/rbac"
	"github.com/meridian-hq/meridian-admin/internal/roles"
	"github.com/meridian-hq/meridian-admin/internal/settings"
	"github.com/meridian-hq/meridian-admin/internal/shared"
	"github.com/meridian-hq/meridian-admin/internal/users"
	"github.com/meridian-hq/meridian-admin/jobs"
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

	redisClient, err := platformcache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionTTL)
	cacheStore := cache.NewRedis(redisClient)

	auditRepo := audit.NewRepository(dbpool)
	auditRecorder := audit.NewRecorder(auditRepo, logger)
	auditService := audit.NewService(auditRepo)
	auditHandler := audithttp.NewHandler(logger, auditService)

	rbacRepo := rbac.NewRepository(dbpool)
	resolver := rbac.NewResolver(rbacRepo)
	permCache := rbac.NewPermissionCache(cacheStore, resolver, rbacRepo, logger)
	guard := rbac.Middleware{Cache: permCache, Logger: logger}
	permissionsHandler := rbac.NewPermissionsHandler(logger, rbacRepo, guard)

	settingsRepo := settings.NewRepository(dbpool)
	settingsStore := settings.NewStore(settingsRepo, cacheStore, logger)
	settingsHandler := settings.NewHandler(logger, settingsStore, auditRecorder)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo, permCache, auditRecorder, logger)
	rolesHandler := roles.NewHandler(logger, rolesService)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, permCache, sessionManager, auditRecorder, logger)
	usersHandler := users.NewHandler(logger, usersService)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, logger)
	authHandler := auth.NewHandler(auth.HandlerParams{
		Logger:      logger,
		Service:     authService,
		Sessions:    sessionManager,
		Recorder:    auditRecorder,
		Settings:    settingsStore,
		Registrar:   usersService,
		Mail:        jobClient,
		Permissions: permCache,
	})

	dashboardHandler := dashboard.NewHandler(logger, usersRepo, rolesRepo, auditRepo)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		RBACMiddleware:     guard,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		AuditHandler:       auditHandler,
		SettingsHandler:    settingsHandler,
		DashboardHandler:   dashboardHandler,
		JobHandler:         jobHandler,
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
