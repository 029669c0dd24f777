package domain

import (
	"database/sql"
	"fmt"
)

// Job status constants. A job moves pending -> sending -> sent|failed,
// failed jobs may return to pending until the attempt cap is reached,
// and pending|failed jobs may be canceled. sent and canceled are terminal.
const (
	JobStatusPending  = "pending"
	JobStatusSending  = "sending"
	JobStatusSent     = "sent"
	JobStatusFailed   = "failed"
	JobStatusCanceled = "canceled"
)

// IsTerminalStatus reports whether a job in the given status can never
// transition again.
func IsTerminalStatus(status string) bool {
	return status == JobStatusSent || status == JobStatusCanceled
}

// ScheduledJob is one unit of future outbound work. All timestamps are
// epoch milliseconds UTC; RFC3339 strings are parsed at the API boundary
// and never stored.
type ScheduledJob struct {
	ID         string         `db:"id"`
	ClientID   int64          `db:"client_id"`
	TemplateID sql.NullInt64  `db:"template_id"`
	DedupKey   string         `db:"dedup_key"`
	SendTime   int64          `db:"send_time"`
	Message    string         `db:"message"`
	Status     string         `db:"status"`
	Attempts   int            `db:"attempts"`
	LastError  sql.NullString `db:"last_error"`
	SentAt     sql.NullInt64  `db:"sent_at"`
	CreatedAt  int64          `db:"created_at"`
	UpdatedAt  int64          `db:"updated_at"`
}

// DueJob is a due pending job joined with the destination phone of its
// client, as returned by the job store for dispatching.
type DueJob struct {
	ScheduledJob
	Phone string `db:"phone"`
}

// MessageRecord is one append-only message history entry, written after a
// send completes. A job produces at most one record, on success.
type MessageRecord struct {
	ID         int64  `db:"id"`
	ClientID   int64  `db:"client_id"`
	Sender     string `db:"sender"`
	Text       string `db:"text"`
	Direction  string `db:"direction"`
	ExternalID string `db:"external_id"`
	CreatedAt  int64  `db:"created_at"`
}

// Message direction and sender values used for outbound history entries.
const (
	DirectionOutbound = "outbound"
	SenderSystem      = "system"
)

// ClientSnapshot carries the client fields the scheduler reads. The client
// entity itself is owned by the CRM API.
type ClientSnapshot struct {
	ID              int64  `db:"id"`
	Name            string `db:"name"`
	Phone           string `db:"phone"`
	Status          string `db:"status_text"`
	Office          string `db:"office"`
	CaseType        string `db:"case_type"`
	AppointmentType string `db:"appointment_type"`
	Language        string `db:"language"`
}

// TriggerDedupKey is the composite key that prevents duplicate enqueueing
// of the same template for the same client.
func TriggerDedupKey(clientID, templateID int64) string {
	return fmt.Sprintf("client:%d:template:%d", clientID, templateID)
}

// ManualDedupKey builds a unique key for an ad-hoc scheduled message.
// Manual jobs never deduplicate against each other.
func ManualDedupKey(token string) string {
	return "manual:" + token
}
