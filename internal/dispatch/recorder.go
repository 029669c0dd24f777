package dispatch

import (
	"context"
	"log/slog"

	"github.com/lexrelay/messaging-be/internal/domain"
)

// MessageStore appends to the message history log.
type MessageStore interface {
	Append(ctx context.Context, rec *domain.MessageRecord) error
}

// Notifier is the fire-and-forget broadcast to live listeners. A publish
// failure must never fail the dispatch that triggered it.
type Notifier interface {
	PublishEvent(ctx context.Context, event string, payload interface{}) error
}

// MessageSentEvent is the payload broadcast to live subscribers after a
// scheduled message goes out.
type MessageSentEvent struct {
	ClientID  int64  `json:"client_id"`
	Text      string `json:"text"`
	Direction string `json:"direction"`
}

// DeliveryRecorder persists the message history entry and notifies live
// subscribers once a send has been marked sent. Both steps are
// best-effort: failures are logged and swallowed.
type DeliveryRecorder struct {
	messages MessageStore
	notifier Notifier
	logger   *slog.Logger
}

// NewDeliveryRecorder creates a new DeliveryRecorder instance
func NewDeliveryRecorder(messages MessageStore, notifier Notifier, logger *slog.Logger) *DeliveryRecorder {
	return &DeliveryRecorder{
		messages: messages,
		notifier: notifier,
		logger:   logger,
	}
}

// RecordSent appends the history entry carrying the provider message id,
// then broadcasts a message_sent event.
func (r *DeliveryRecorder) RecordSent(ctx context.Context, job domain.DueJob, providerID string) {
	rec := &domain.MessageRecord{
		ClientID:   job.ClientID,
		Sender:     domain.SenderSystem,
		Text:       job.Message,
		Direction:  domain.DirectionOutbound,
		ExternalID: providerID,
	}

	if err := r.messages.Append(ctx, rec); err != nil {
		r.logger.Error("Failed to append message record",
			slog.String("job_id", job.ID),
			slog.Int64("client_id", job.ClientID),
			slog.String("error", err.Error()),
		)
	}

	event := MessageSentEvent{
		ClientID:  job.ClientID,
		Text:      job.Message,
		Direction: domain.DirectionOutbound,
	}
	if err := r.notifier.PublishEvent(ctx, "message_sent", event); err != nil {
		r.logger.Warn("Failed to publish message_sent event",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}
