package dto

import (
	"time"

	"github.com/lexrelay/messaging-be/internal/domain"
)

// TriggerRequest is the status-change event posted by the CRM whenever a
// client's tracked status changes. trigger_time is optional RFC3339 and
// defaults to the current time.
type TriggerRequest struct {
	ClientID        int64  `json:"client_id" binding:"required"`
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Status          string `json:"status" binding:"required"`
	Office          string `json:"office"`
	CaseType        string `json:"case_type"`
	AppointmentType string `json:"appointment_type"`
	Language        string `json:"language"`
	TriggerTime     string `json:"trigger_time"`
}

// Snapshot converts the request into the domain client snapshot.
func (r TriggerRequest) Snapshot() domain.ClientSnapshot {
	return domain.ClientSnapshot{
		ID:              r.ClientID,
		Name:            r.Name,
		Phone:           r.Phone,
		Status:          r.Status,
		Office:          r.Office,
		CaseType:        r.CaseType,
		AppointmentType: r.AppointmentType,
		Language:        r.Language,
	}
}

// TriggerResponse reports how many jobs a trigger enqueued.
type TriggerResponse struct {
	EnqueuedCount int `json:"enqueued_count"`
}

// ScheduleManualRequest schedules an ad-hoc reminder bypassing templates.
type ScheduleManualRequest struct {
	ClientID int64  `json:"client_id" binding:"required"`
	SendTime string `json:"send_time" binding:"required"`
	Body     string `json:"body" binding:"required"`
}

// ListJobsRequest filters the admin job listing.
type ListJobsRequest struct {
	ClientID int64  `form:"client_id"`
	Status   string `form:"status"`
	Limit    int    `form:"limit"`
}

// ListJobsResponse wraps the admin job listing.
type ListJobsResponse struct {
	Jobs []JobDTO `json:"jobs"`
}

// JobDTO is the admin-facing view of a scheduled job. Epoch-millisecond
// timestamps are rendered as RFC3339 at this boundary only.
type JobDTO struct {
	JobID      string `json:"job_id"`
	ClientID   int64  `json:"client_id"`
	TemplateID *int64 `json:"template_id,omitempty"`
	SendTime   string `json:"send_time"`
	Message    string `json:"message"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	LastError  string `json:"last_error,omitempty"`
	SentAt     string `json:"sent_at,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// NewJobDTO maps a domain job to its API representation.
func NewJobDTO(job domain.ScheduledJob) JobDTO {
	dto := JobDTO{
		JobID:     job.ID,
		ClientID:  job.ClientID,
		SendTime:  formatMillis(job.SendTime),
		Message:   job.Message,
		Status:    job.Status,
		Attempts:  job.Attempts,
		CreatedAt: formatMillis(job.CreatedAt),
		UpdatedAt: formatMillis(job.UpdatedAt),
	}

	if job.TemplateID.Valid {
		id := job.TemplateID.Int64
		dto.TemplateID = &id
	}
	if job.LastError.Valid {
		dto.LastError = job.LastError.String
	}
	if job.SentAt.Valid {
		dto.SentAt = formatMillis(job.SentAt.Int64)
	}

	return dto
}

func formatMillis(millis int64) string {
	return time.UnixMilli(millis).UTC().Format(time.RFC3339)
}
