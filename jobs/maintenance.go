package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeInviteSweep removes invites past their expiry.
	TaskTypeInviteSweep = "maintenance:invite_sweep"
	// TaskTypeSessionCleanup removes expired session rows.
	TaskTypeSessionCleanup = "maintenance:session_cleanup"
	// TaskTypeAuditRetention prunes audit log entries past the retention window.
	TaskTypeAuditRetention = "maintenance:audit_retention"
)

// NewInviteSweepTask constructs the invite sweep task.
func NewInviteSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeInviteSweep, nil, asynq.Queue(QueueDefault))
}

// NewSessionCleanupTask constructs the session cleanup task.
func NewSessionCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionCleanup, nil, asynq.Queue(QueueDefault))
}

// NewAuditRetentionTask constructs the audit retention task.
func NewAuditRetentionTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAuditRetention, nil, asynq.Queue(QueueDefault))
}

// InviteSweeper deletes expired invites.
type InviteSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// NewInviteSweepHandler builds the handler for TaskTypeInviteSweep.
func NewInviteSweepHandler(sweeper InviteSweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := sweeper.SweepExpired(ctx)
		if err != nil {
			return err
		}
		logger.Info("invite sweep", slog.Int64("removed", n))
		return nil
	}
}

// SessionCleaner deletes expired sessions.
type SessionCleaner interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// NewSessionCleanupHandler builds the handler for TaskTypeSessionCleanup.
func NewSessionCleanupHandler(cleaner SessionCleaner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := cleaner.DeleteExpiredSessions(ctx)
		if err != nil {
			return err
		}
		logger.Info("session cleanup", slog.Int64("removed", n))
		return nil
	}
}

// AuditPurger prunes audit log entries older than the retention window.
type AuditPurger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// NewAuditRetentionHandler builds the handler for TaskTypeAuditRetention.
func NewAuditRetentionHandler(purger AuditPurger, retention time.Duration, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := purger.Purge(ctx, retention)
		if err != nil {
			return err
		}
		logger.Info("audit retention", slog.Int64("removed", n))
		return nil
	}
}
