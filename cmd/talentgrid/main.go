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

	"github.com/talentgrid-hq/talentgrid/internal/app"
	"github.com/talentgrid-hq/talentgrid/internal/auth"
	"github.com/talentgrid-hq/talentgrid/internal/authz"
	"github.com/talentgrid-hq/talentgrid/internal/invites"
	"github.com/talentgrid-hq/talentgrid/internal/observability"
	"github.com/talentgrid-hq/talentgrid/internal/platform/cache"
	"github.com/talentgrid-hq/talentgrid/internal/platform/db"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
	"github.com/talentgrid-hq/talentgrid/internal/tenancy"
	"github.com/talentgrid-hq/talentgrid/internal/users"
	"github.com/talentgrid-hq/talentgrid/jobs"
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

	sessionManager := shared.NewSessionManager(redisClient, "tg_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	roleCookie := authz.NewRoleCookie(cfg.RoleCookieSecret, cfg.RoleCookieTTL, cfg.IsProduction())
	authzRepo := authz.NewRepository(dbpool)
	lookup := authz.NewLookup(authzRepo, logger, metrics, cfg.RoleLookupTimeout)

	table := authz.DefaultTable()
	table.DefaultDeny = cfg.DefaultDeny
	gate := authz.Middleware{
		Lookup:     lookup,
		Table:      table,
		Public:     authz.PublicRoutes(),
		Onboarding: authz.OnboardingRoutes(),
		Cookie:     roleCookie,
		Logger:     logger,
		Metrics:    metrics,
	}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, lookup, sessionManager, roleCookie)

	tenancyRepo := tenancy.NewRepository(dbpool)
	tenancyService := tenancy.NewService(tenancyRepo, auditLogger, logger)
	tenancyHandler := tenancy.NewHandler(logger, tenancyService, lookup, authService)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	inviteRepo := invites.NewRepository(dbpool)
	inviteTokens := invites.NewTokenCodec(cfg.InviteSecret)
	inviteService := invites.NewService(inviteRepo, tenancyRepo, inviteTokens, asynqClient, auditLogger, logger, cfg.InviteTTL, cfg.AppBaseURL)
	inviteHandler := invites.NewHandler(logger, inviteService, lookup, dbpool)

	usersService := users.NewService()
	usersHandler := users.NewHandler(logger, usersService, lookup, dbpool)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Authz:          gate,
		AuthHandler:    authHandler,
		TenancyHandler: tenancyHandler,
		UsersHandler:   usersHandler,
		InvitesHandler: inviteHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
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
