package lifecycle

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

// AuditLogger records admin updates
type AuditLogger interface {
	LogUpdate(ctx context.Context, actorID, jobID int64, changes []domain.ChangeLogEntry)
}

// SlogAudit writes one structured record per update
type SlogAudit struct {
	logger *slog.Logger
}

func NewSlogAudit(logger *slog.Logger) *SlogAudit {
	return &SlogAudit{logger: logger.With("component", "audit")}
}

func (a *SlogAudit) LogUpdate(ctx context.Context, actorID, jobID int64, changes []domain.ChangeLogEntry) {
	attrs := make([]any, 0, len(changes))
	for _, c := range changes {
		attrs = append(attrs, slog.Group(string(c.Field), "old", c.Old, "new", c.New))
	}
	a.logger.InfoContext(ctx, "Job updated",
		"actor_id", actorID,
		"job_id", jobID,
		slog.Group("changes", attrs...),
	)
}
