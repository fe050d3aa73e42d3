package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atlas-hq/atlas-admin/internal/observability"
	"github.com/atlas-hq/atlas-admin/internal/shared"
)

const (
	// TaskAuditCleanup removes audit trail entries past the retention window.
	TaskAuditCleanup = "audit:cleanup"

	auditRetention = 90 * 24 * time.Hour
)

// AuditCleanupPayload carries scheduling metadata.
type AuditCleanupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewAuditCleanupTask constructs an Asynq task for audit retention.
func NewAuditCleanupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(AuditCleanupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditCleanup, body, asynq.Queue(QueueDefault)), nil
}

// NewAuditCleanupHandler returns the handler deleting expired audit entries.
func NewAuditCleanupHandler(logger *slog.Logger, audit *shared.AuditLogger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		err := audit.Cleanup(ctx, auditRetention)
		metrics.ObserveJob("audit_cleanup", err)
		if err != nil {
			logger.Error("audit cleanup failed", slog.Any("error", err))
			return err
		}
		logger.Info("audit cleanup completed", slog.Time("scheduled_for", payload.ScheduledFor))
		return nil
	}
}
