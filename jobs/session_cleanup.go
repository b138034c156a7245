package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-hq/meridian-admin/internal/jobs"
)

// SessionCleanupCron runs hourly; the Redis copies expire on their own
// TTL, so only the postgres rows need pruning.
const SessionCleanupCron = "0 * * * *"

// NewSessionCleanupHandler builds the handler for TaskTypeSessionCleanup.
func NewSessionCleanupHandler(pool *pgxpool.Pool, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track("session_cleanup")
		tag, err := pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
		if err != nil {
			logger.Error("session cleanup", slog.Any("error", err))
			return tracker.End(err)
		}
		logger.Info("session cleanup", slog.Int64("pruned", tag.RowsAffected()))
		return tracker.End(nil)
	}
}
