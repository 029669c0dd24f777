package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lexrelay/messaging-be/internal/api/dto"
	"github.com/lexrelay/messaging-be/internal/domain"
	"github.com/lexrelay/messaging-be/internal/store"
)

// Trigger handles POST /api/v1/triggers/status-change
// Enqueues follow-up messages for a client whose tracked status changed.
func (h *JobHandler) Trigger(c *gin.Context) {
	var req dto.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid trigger request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	triggerTime := time.Now()
	if req.TriggerTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.TriggerTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "trigger_time must be RFC3339",
			})
			return
		}
		triggerTime = parsed
	}

	count, err := h.scheduler.EnqueueForTrigger(c.Request.Context(), req.Snapshot(), triggerTime)
	if err != nil {
		h.logger.Error("Failed to process trigger",
			slog.Int64("client_id", req.ClientID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to process trigger",
		})
		return
	}

	c.JSON(http.StatusOK, dto.TriggerResponse{EnqueuedCount: count})
}

// ScheduleManual handles POST /api/v1/jobs
// Schedules an ad-hoc reminder, bypassing template matching.
func (h *JobHandler) ScheduleManual(c *gin.Context) {
	var req dto.ScheduleManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid schedule request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	sendTime, err := time.Parse(time.RFC3339, req.SendTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "send_time must be RFC3339",
		})
		return
	}

	jobID, err := h.scheduler.ScheduleManual(c.Request.Context(), req.ClientID, sendTime, req.Body)
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Client not found",
			})
			return
		}
		h.logger.Error("Failed to schedule manual message",
			slog.Int64("client_id", req.ClientID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to schedule message",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"job_id": jobID,
	})
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(*job))
}

// ListJobs handles GET /api/v1/jobs
// Lists scheduled jobs for the admin UI, with status and last_error shown
// directly for operator debugging.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	jobs, err := h.jobs.ListJobs(c.Request.Context(), store.JobFilter{
		ClientID: req.ClientID,
		Status:   req.Status,
		Limit:    req.Limit,
	})
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	response := make([]dto.JobDTO, len(jobs))
	for i, job := range jobs {
		response[i] = dto.NewJobDTO(job)
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{Jobs: response})
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
// Cancels a job that has not started sending. A job already in flight or
// in a terminal state is reported as a conflict, not clobbered.
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	canceled, err := h.jobs.Cancel(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to cancel job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel job",
		})
		return
	}

	if !canceled {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Job cannot be canceled",
			"job_id": jobID,
		})
		return
	}

	h.logger.Info("Job canceled",
		slog.String("job_id", jobID),
	)

	c.JSON(http.StatusOK, gin.H{
		"job_id": jobID,
		"status": domain.JobStatusCanceled,
	})
}
