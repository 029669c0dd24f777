package enqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lexrelay/messaging-be/internal/domain"
	"github.com/lexrelay/messaging-be/internal/template"
)

// JobStore is the slice of the job store the enqueuer writes through.
type JobStore interface {
	Enqueue(ctx context.Context, job *domain.ScheduledJob) error
}

// TemplateSource lists the active follow-up templates.
type TemplateSource interface {
	ListActive(ctx context.Context) ([]template.Template, error)
}

// ClientDirectory resolves client snapshots from the CRM-owned clients
// table.
type ClientDirectory interface {
	GetClient(ctx context.Context, clientID int64) (*domain.ClientSnapshot, error)
}

// Enqueuer turns a triggering business event into zero or more pending
// jobs. It never sends anything itself; its only side effect is the job
// store write.
type Enqueuer struct {
	store     JobStore
	templates TemplateSource
	clients   ClientDirectory
	logger    *slog.Logger
}

// NewEnqueuer creates a new Enqueuer instance
func NewEnqueuer(store JobStore, templates TemplateSource, clients ClientDirectory, logger *slog.Logger) *Enqueuer {
	return &Enqueuer{
		store:     store,
		templates: templates,
		clients:   clients,
		logger:    logger,
	}
}

// EnqueueForTrigger resolves all active templates matching the client
// snapshot and enqueues one job per match, with send time pushed out by
// the template's delay. Duplicate dedup keys are skipped silently, so
// re-triggering the same status change is idempotent. Returns how many
// jobs were newly enqueued; zero matches is a normal outcome.
func (e *Enqueuer) EnqueueForTrigger(ctx context.Context, client domain.ClientSnapshot, triggerTime time.Time) (int, error) {
	templates, err := e.templates.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load templates: %w", err)
	}

	enqueued := 0
	for _, t := range templates {
		if !t.Matches(client) {
			continue
		}

		job := &domain.ScheduledJob{
			ID:         uuid.New().String(),
			ClientID:   client.ID,
			TemplateID: sql.NullInt64{Int64: t.ID, Valid: true},
			DedupKey:   domain.TriggerDedupKey(client.ID, t.ID),
			SendTime:   triggerTime.Add(t.Delay()).UnixMilli(),
			Message:    t.Render(client),
		}

		if err := e.store.Enqueue(ctx, job); err != nil {
			if errors.Is(err, domain.ErrDuplicateJob) {
				e.logger.Debug("Template already enqueued for client, skipping",
					slog.Int64("client_id", client.ID),
					slog.Int64("template_id", t.ID),
				)
				continue
			}
			return enqueued, fmt.Errorf("failed to enqueue template %d: %w", t.ID, err)
		}

		enqueued++
	}

	e.logger.Info("Trigger processed",
		slog.Int64("client_id", client.ID),
		slog.String("status", client.Status),
		slog.Int("enqueued", enqueued),
	)

	return enqueued, nil
}

// ScheduleManual enqueues an ad-hoc reminder, bypassing template matching.
// The body is stored as-is; a send time in the past makes the job due on
// the next dispatcher tick.
func (e *Enqueuer) ScheduleManual(ctx context.Context, clientID int64, sendTime time.Time, body string) (string, error) {
	// Unlike triggers, manual requests carry no client snapshot, so the
	// client must exist before a job referencing it is accepted.
	if _, err := e.clients.GetClient(ctx, clientID); err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			return "", domain.ErrClientNotFound
		}
		return "", fmt.Errorf("failed to look up client %d: %w", clientID, err)
	}

	job := &domain.ScheduledJob{
		ID:       uuid.New().String(),
		ClientID: clientID,
		DedupKey: domain.ManualDedupKey(uuid.New().String()),
		SendTime: sendTime.UnixMilli(),
		Message:  body,
	}

	if err := e.store.Enqueue(ctx, job); err != nil {
		return "", fmt.Errorf("failed to schedule manual message: %w", err)
	}

	e.logger.Info("Manual message scheduled",
		slog.String("job_id", job.ID),
		slog.Int64("client_id", clientID),
		slog.Int64("send_time", job.SendTime),
	)

	return job.ID, nil
}
