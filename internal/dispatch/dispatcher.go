package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lexrelay/messaging-be/internal/domain"
	"github.com/lexrelay/messaging-be/internal/gateway"
)

// JobStore is the slice of the job store the dispatcher drives. All
// cross-process coordination happens through the atomic Claim; the
// dispatcher holds no locks of its own beyond the tick guard.
type JobStore interface {
	ListDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.DueJob, error)
	Claim(ctx context.Context, jobID string) (bool, error)
	MarkSent(ctx context.Context, jobID string, sentAt time.Time) error
	MarkFailed(ctx context.Context, jobID, errText string) error
	MarkFailedPermanent(ctx context.Context, jobID, errText string, maxAttempts int) error
	RequeueStaleFailures(ctx context.Context, maxAttempts int, cooldown time.Duration, now time.Time) (int64, error)
}

// Config holds dispatcher configuration
type Config struct {
	Logger        *slog.Logger
	Store         JobStore
	Sender        gateway.Sender
	Recorder      *DeliveryRecorder
	PollInterval  time.Duration
	BatchLimit    int
	MaxAttempts   int
	RetryCooldown time.Duration

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Dispatcher is the background loop that polls for due jobs, claims them
// exclusively, sends them through the carrier, and records the outcome.
// One instance per process; ticks never overlap.
type Dispatcher struct {
	logger        *slog.Logger
	store         JobStore
	sender        gateway.Sender
	recorder      *DeliveryRecorder
	pollInterval  time.Duration
	batchLimit    int
	maxAttempts   int
	retryCooldown time.Duration
	now           func() time.Time

	tickMu   sync.Mutex
	started  atomic.Bool
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a new Dispatcher instance
func NewDispatcher(cfg *Config) *Dispatcher {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Dispatcher{
		logger:        cfg.Logger,
		store:         cfg.Store,
		sender:        cfg.Sender,
		recorder:      cfg.Recorder,
		pollInterval:  cfg.PollInterval,
		batchLimit:    cfg.BatchLimit,
		maxAttempts:   cfg.MaxAttempts,
		retryCooldown: cfg.RetryCooldown,
		now:           now,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start runs the polling loop until the context is canceled or Stop is
// called. It blocks; run it in its own goroutine.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.started.Store(true)

	d.logger.Info("Dispatcher started",
		slog.Duration("poll_interval", d.pollInterval),
		slog.Int("batch_limit", d.batchLimit),
		slog.Int("max_attempts", d.maxAttempts),
	)

	defer close(d.doneChan)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopping - context canceled")
			return nil

		case <-d.stopChan:
			d.logger.Info("Dispatcher stopping - stop requested")
			return nil

		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Stop ceases scheduling future ticks and waits for an in-progress tick
// to finish. It never aborts an in-flight send. Stopping a dispatcher
// that was never started returns immediately.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
	})
	if d.started.Load() {
		<-d.doneChan
	}
	d.logger.Info("Dispatcher stopped")
}

// Tick runs one poll-and-process cycle. TryLock is the re-entrancy guard:
// if the previous tick is still running the new one is skipped, bounding
// outbound sends to one in flight per process. Any panic escaping the
// tick is logged so the loop itself never dies.
func (d *Dispatcher) Tick(ctx context.Context) {
	if !d.tickMu.TryLock() {
		d.logger.Warn("Previous tick still running, skipping")
		return
	}
	defer d.tickMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Tick panicked",
				slog.Any("panic", r),
			)
		}
	}()

	now := d.now()

	requeued, err := d.store.RequeueStaleFailures(ctx, d.maxAttempts, d.retryCooldown, now)
	if err != nil {
		d.logger.Error("Failed to requeue stale failures, ending tick",
			slog.String("error", err.Error()),
		)
		return
	}
	if requeued > 0 {
		d.logger.Info("Requeued failed jobs for retry",
			slog.Int64("count", requeued),
		)
	}

	jobs, err := d.store.ListDue(ctx, now, d.maxAttempts, d.batchLimit)
	if err != nil {
		d.logger.Error("Failed to list due jobs, ending tick",
			slog.String("error", err.Error()),
		)
		return
	}

	if len(jobs) == 0 {
		return
	}

	d.logger.Info("Processing due jobs",
		slog.Int("count", len(jobs)),
	)

	// Sequential on purpose: keeps sends roughly chronological and avoids
	// bursting the carrier.
	for _, job := range jobs {
		d.processJob(ctx, job)
	}
}

// processJob claims and sends a single job. Errors are converted into job
// state, never propagated, so one bad job cannot abort the batch.
func (d *Dispatcher) processJob(ctx context.Context, job domain.DueJob) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Job processing panicked",
				slog.String("job_id", job.ID),
				slog.Any("panic", r),
			)
			if err := d.store.MarkFailed(ctx, job.ID, fmt.Sprintf("panic: %v", r)); err != nil {
				d.logger.Error("Failed to mark panicked job failed",
					slog.String("job_id", job.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}()

	claimed, err := d.store.Claim(ctx, job.ID)
	if err != nil {
		d.logger.Error("Failed to claim job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !claimed {
		// Another dispatcher or a previous tick took it. Expected under
		// concurrent dispatchers; just skip.
		d.logger.Debug("Job already claimed, skipping",
			slog.String("job_id", job.ID),
		)
		return
	}

	to := domain.FormatE164(job.Phone)
	if to == "" {
		d.logger.Warn("Job has unusable destination phone",
			slog.String("job_id", job.ID),
			slog.Int64("client_id", job.ClientID),
		)
		d.markFailed(ctx, job.ID, "invalid destination phone: "+job.Phone, true)
		return
	}

	providerID, err := d.sender.Send(ctx, to, job.Message)
	if err != nil {
		d.logger.Warn("Send failed",
			slog.String("job_id", job.ID),
			slog.Bool("permanent", gateway.IsPermanent(err)),
			slog.String("error", err.Error()),
		)
		d.markFailed(ctx, job.ID, err.Error(), gateway.IsPermanent(err))
		return
	}

	if err := d.store.MarkSent(ctx, job.ID, d.now()); err != nil {
		d.logger.Error("Failed to mark job sent",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	d.logger.Info("Scheduled message sent",
		slog.String("job_id", job.ID),
		slog.Int64("client_id", job.ClientID),
		slog.String("provider_id", providerID),
	)

	// History and live notification are best-effort after the
	// authoritative mark_sent: a dropped record is acceptable, a
	// duplicate send is not.
	d.recorder.RecordSent(ctx, job, providerID)
}

func (d *Dispatcher) markFailed(ctx context.Context, jobID, errText string, permanent bool) {
	var err error
	if permanent {
		err = d.store.MarkFailedPermanent(ctx, jobID, errText, d.maxAttempts)
	} else {
		err = d.store.MarkFailed(ctx, jobID, errText)
	}
	if err != nil {
		d.logger.Error("Failed to record job failure",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}
