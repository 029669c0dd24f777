package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexrelay/messaging-be/internal/domain"
	"github.com/lexrelay/messaging-be/internal/store"
)

// Scheduler is the enqueue surface the handlers call.
type Scheduler interface {
	EnqueueForTrigger(ctx context.Context, client domain.ClientSnapshot, triggerTime time.Time) (int, error)
	ScheduleManual(ctx context.Context, clientID int64, sendTime time.Time, body string) (string, error)
}

// JobReader is the read/cancel surface of the job store the API exposes.
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*domain.ScheduledJob, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]domain.ScheduledJob, error)
	Cancel(ctx context.Context, jobID string) (bool, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Scheduler Scheduler
	Jobs      JobReader
}

// JobHandler handles scheduled-message HTTP requests
type JobHandler struct {
	logger    *slog.Logger
	scheduler Scheduler
	jobs      JobReader
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:    deps.Logger,
		scheduler: deps.Scheduler,
		jobs:      deps.Jobs,
	}
}
