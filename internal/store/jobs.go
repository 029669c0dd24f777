package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lexrelay/messaging-be/internal/domain"
	"github.com/lexrelay/messaging-be/shared/postgresql"
)

// JobStore handles all database operations on the scheduled_jobs table.
// Every mutation is a single conditional UPDATE or INSERT so there is no
// multi-step transaction that could partially apply.
type JobStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewJobStore creates a new JobStore instance
func NewJobStore(pg *postgresql.Client, logger *slog.Logger) *JobStore {
	return &JobStore{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// Enqueue inserts a new pending job. If a non-canceled job with the same
// dedup key already exists it returns domain.ErrDuplicateJob and inserts
// nothing; the caller treats that as a normal skip, never a failure.
func (s *JobStore) Enqueue(ctx context.Context, job *domain.ScheduledJob) error {
	query := `
		INSERT INTO scheduled_jobs (
			id, client_id, template_id, dedup_key, send_time,
			message, status, attempts, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, 0, $8, $8
		)
		ON CONFLICT (dedup_key) WHERE status <> 'canceled' DO NOTHING
	`

	now := time.Now().UnixMilli()
	result, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.ClientID,
		job.TemplateID,
		job.DedupKey,
		job.SendTime,
		job.Message,
		domain.JobStatusPending,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		s.logger.Debug("Enqueue skipped - dedup key already exists",
			slog.String("dedup_key", job.DedupKey),
		)
		return domain.ErrDuplicateJob
	}

	job.Status = domain.JobStatusPending
	job.CreatedAt = now
	job.UpdatedAt = now

	return nil
}

// ListDue returns pending jobs that are due at the given instant and still
// below the attempt cap, joined with the destination phone, oldest send
// time first. Ties break by id ascending so ordering is deterministic.
func (s *JobStore) ListDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.DueJob, error) {
	query := `
		SELECT
			sj.id, sj.client_id, sj.template_id, sj.dedup_key, sj.send_time,
			sj.message, sj.status, sj.attempts, sj.last_error, sj.sent_at,
			sj.created_at, sj.updated_at,
			c.phone
		FROM scheduled_jobs sj
		JOIN clients c ON c.id = sj.client_id
		WHERE sj.status = $1
		  AND sj.send_time <= $2
		  AND sj.attempts < $3
		ORDER BY sj.send_time ASC, sj.id ASC
		LIMIT $4
	`

	var jobs []domain.DueJob
	err := s.db.SelectContext(ctx, &jobs, query, domain.JobStatusPending, now.UnixMilli(), maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due jobs: %w", err)
	}

	return jobs, nil
}

// Claim attempts the pending -> sending transition. It is a single atomic
// conditional write: it succeeds only if the row is still pending at the
// moment of update. A false return means another dispatcher got there
// first, which is expected contention, not an error.
func (s *JobStore) Claim(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE scheduled_jobs
		SET status = $1,
		    updated_at = $2
		WHERE id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusSending, time.Now().UnixMilli(), jobID, domain.JobStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// MarkSent records a successful send. sent_at is set exactly once, here.
func (s *JobStore) MarkSent(ctx context.Context, jobID string, sentAt time.Time) error {
	query := `
		UPDATE scheduled_jobs
		SET status = $1,
		    sent_at = $2,
		    updated_at = $2
		WHERE id = $3
		  AND status = $4
	`

	_, err := s.db.ExecContext(ctx, query, domain.JobStatusSent, sentAt.UnixMilli(), jobID, domain.JobStatusSending)
	if err != nil {
		return fmt.Errorf("failed to mark job sent: %w", err)
	}

	return nil
}

// MarkFailed records a failed attempt and bumps the attempt counter. The
// job stays eligible for RequeueStaleFailures until it hits the cap.
func (s *JobStore) MarkFailed(ctx context.Context, jobID, errText string) error {
	query := `
		UPDATE scheduled_jobs
		SET status = $1,
		    attempts = attempts + 1,
		    last_error = $2,
		    updated_at = $3
		WHERE id = $4
		  AND status = $5
	`

	_, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errText, time.Now().UnixMilli(), jobID, domain.JobStatusSending)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	return nil
}

// MarkFailedPermanent records a failure the carrier classified as
// non-retryable (invalid number, recipient opted out). Pinning attempts to
// the cap keeps the job out of ListDue and RequeueStaleFailures for good.
func (s *JobStore) MarkFailedPermanent(ctx context.Context, jobID, errText string, maxAttempts int) error {
	query := `
		UPDATE scheduled_jobs
		SET status = $1,
		    attempts = GREATEST(attempts + 1, $2),
		    last_error = $3,
		    updated_at = $4
		WHERE id = $5
		  AND status = $6
	`

	_, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, maxAttempts, errText, time.Now().UnixMilli(), jobID, domain.JobStatusSending)
	if err != nil {
		return fmt.Errorf("failed to mark job permanently failed: %w", err)
	}

	return nil
}

// RequeueStaleFailures moves failed jobs back to pending once the cooldown
// has elapsed since their last state change, as long as they are still
// below the attempt cap. Returns how many jobs were requeued.
func (s *JobStore) RequeueStaleFailures(ctx context.Context, maxAttempts int, cooldown time.Duration, now time.Time) (int64, error) {
	query := `
		UPDATE scheduled_jobs
		SET status = $1,
		    updated_at = $2
		WHERE status = $3
		  AND attempts < $4
		  AND updated_at <= $5
	`

	nowMillis := now.UnixMilli()
	result, err := s.db.ExecContext(ctx, query, domain.JobStatusPending, nowMillis, domain.JobStatusFailed, maxAttempts, nowMillis-cooldown.Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale failures: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// Cancel moves a job to canceled if it has not started sending and has not
// reached a terminal state. Returns false when the job was in any other
// status - an in-flight send is never clobbered.
func (s *JobStore) Cancel(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE scheduled_jobs
		SET status = $1,
		    updated_at = $2
		WHERE id = $3
		  AND status IN ($4, $5)
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusCanceled, time.Now().UnixMilli(), jobID, domain.JobStatusPending, domain.JobStatusFailed)
	if err != nil {
		return false, fmt.Errorf("failed to cancel job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// GetJob retrieves a job by id.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (*domain.ScheduledJob, error) {
	query := `
		SELECT
			id, client_id, template_id, dedup_key, send_time,
			message, status, attempts, last_error, sent_at,
			created_at, updated_at
		FROM scheduled_jobs
		WHERE id = $1
	`

	var job domain.ScheduledJob
	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// JobFilter narrows ListJobs for the admin UI.
type JobFilter struct {
	ClientID int64
	Status   string
	Limit    int
}

// ListJobs returns jobs for the admin listing, newest send time first.
func (s *JobStore) ListJobs(ctx context.Context, filter JobFilter) ([]domain.ScheduledJob, error) {
	query := `
		SELECT
			id, client_id, template_id, dedup_key, send_time,
			message, status, attempts, last_error, sent_at,
			created_at, updated_at
		FROM scheduled_jobs
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.ClientID != 0 {
		query += fmt.Sprintf(" AND client_id = $%d", argIdx)
		args = append(args, filter.ClientID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	query += " ORDER BY send_time DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	var jobs []domain.ScheduledJob
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}
