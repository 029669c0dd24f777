package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lexrelay/messaging-be/internal/domain"
	"github.com/lexrelay/messaging-be/shared/postgresql"
)

// MessageStore appends to the message history log. The log is append-only:
// nothing in the scheduler ever updates or deletes a history row.
type MessageStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewMessageStore creates a new MessageStore instance
func NewMessageStore(pg *postgresql.Client, logger *slog.Logger) *MessageStore {
	return &MessageStore{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// Append writes one history entry for a completed send.
func (s *MessageStore) Append(ctx context.Context, rec *domain.MessageRecord) error {
	query := `
		INSERT INTO messages (client_id, sender, text, direction, external_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now().UnixMilli()
	err := s.db.QueryRowContext(
		ctx,
		query,
		rec.ClientID,
		rec.Sender,
		rec.Text,
		rec.Direction,
		rec.ExternalID,
		now,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to append message record: %w", err)
	}

	rec.CreatedAt = now
	return nil
}
