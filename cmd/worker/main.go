package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/talentgrid-hq/talentgrid/internal/app"
	"github.com/talentgrid-hq/talentgrid/internal/auth"
	"github.com/talentgrid-hq/talentgrid/internal/invites"
	jobmetrics "github.com/talentgrid-hq/talentgrid/internal/jobs"
	"github.com/talentgrid-hq/talentgrid/internal/platform/db"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
	"github.com/talentgrid-hq/talentgrid/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditLogger := shared.NewAuditLogger(pool)
	authRepo := auth.NewRepository(pool)

	inviteRepo := invites.NewRepository(pool)
	inviteTokens := invites.NewTokenCodec(cfg.InviteSecret)
	inviteService := invites.NewService(inviteRepo, nil, inviteTokens, nil, auditLogger, logger, cfg.InviteTTL, cfg.AppBaseURL)

	mailer := &jobs.Mailer{
		Addr:   fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		From:   cfg.SMTPFrom,
		Logger: logger,
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Metrics:   jobmetrics.NewMetrics(nil),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailer.HandleSendEmail},
			{Type: jobs.TaskTypeInviteSweep, Handler: jobs.NewInviteSweepHandler(inviteService, logger)},
			{Type: jobs.TaskTypeSessionCleanup, Handler: jobs.NewSessionCleanupHandler(authRepo, logger)},
			{Type: jobs.TaskTypeAuditRetention, Handler: jobs.NewAuditRetentionHandler(auditLogger, cfg.AuditRetention, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: jobs.NewInviteSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 3 * * *", Task: jobs.NewSessionCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 4 * * 0", Task: jobs.NewAuditRetentionTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
