package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lexrelay/messaging-be/internal/domain"
	"github.com/lexrelay/messaging-be/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	lastClient  domain.ClientSnapshot
	lastTrigger time.Time
	count       int
	jobID       string
	err         error
}

func (f *fakeScheduler) EnqueueForTrigger(ctx context.Context, client domain.ClientSnapshot, triggerTime time.Time) (int, error) {
	f.lastClient = client
	f.lastTrigger = triggerTime
	return f.count, f.err
}

func (f *fakeScheduler) ScheduleManual(ctx context.Context, clientID int64, sendTime time.Time, body string) (string, error) {
	return f.jobID, f.err
}

type fakeJobReader struct {
	job        *domain.ScheduledJob
	jobs       []domain.ScheduledJob
	lastFilter store.JobFilter
	canceled   bool
	err        error
}

func (f *fakeJobReader) GetJob(ctx context.Context, jobID string) (*domain.ScheduledJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

func (f *fakeJobReader) ListJobs(ctx context.Context, filter store.JobFilter) ([]domain.ScheduledJob, error) {
	f.lastFilter = filter
	return f.jobs, f.err
}

func (f *fakeJobReader) Cancel(ctx context.Context, jobID string) (bool, error) {
	return f.canceled, f.err
}

func newTestRouter(scheduler *fakeScheduler, jobs *fakeJobReader) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewJobHandler(&Dependencies{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Scheduler: scheduler,
		Jobs:      jobs,
	})

	r := gin.New()
	r.POST("/api/v1/triggers/status-change", h.Trigger)
	r.POST("/api/v1/jobs", h.ScheduleManual)
	r.GET("/api/v1/jobs", h.ListJobs)
	r.GET("/api/v1/jobs/:job_id", h.GetJob)
	r.POST("/api/v1/jobs/:job_id/cancel", h.CancelJob)
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const testJobID = "5b5c9cbd-4b0c-4b6e-9a52-0f5c0f3a9d10"

func TestTrigger(t *testing.T) {
	t.Run("enqueues and reports count", func(t *testing.T) {
		scheduler := &fakeScheduler{count: 2}
		r := newTestRouter(scheduler, &fakeJobReader{})

		w := doJSON(r, http.MethodPost, "/api/v1/triggers/status-change", `{
			"client_id": 7,
			"name": "Jane",
			"phone": "6025551234",
			"status": "No Show",
			"office": "PHX",
			"trigger_time": "2025-06-02T15:00:00Z"
		}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"enqueued_count": 2}`, w.Body.String())

		assert.Equal(t, int64(7), scheduler.lastClient.ID)
		assert.Equal(t, "No Show", scheduler.lastClient.Status)
		assert.Equal(t, time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC), scheduler.lastTrigger.UTC())
	})

	t.Run("trigger time defaults to now", func(t *testing.T) {
		scheduler := &fakeScheduler{}
		r := newTestRouter(scheduler, &fakeJobReader{})

		before := time.Now()
		w := doJSON(r, http.MethodPost, "/api/v1/triggers/status-change", `{
			"client_id": 7,
			"status": "No Show"
		}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, scheduler.lastTrigger.Before(before))
	})

	t.Run("rejects missing status", func(t *testing.T) {
		r := newTestRouter(&fakeScheduler{}, &fakeJobReader{})

		w := doJSON(r, http.MethodPost, "/api/v1/triggers/status-change", `{"client_id": 7}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects non-RFC3339 trigger time", func(t *testing.T) {
		r := newTestRouter(&fakeScheduler{}, &fakeJobReader{})

		w := doJSON(r, http.MethodPost, "/api/v1/triggers/status-change", `{
			"client_id": 7,
			"status": "No Show",
			"trigger_time": "06/02/2025 3pm"
		}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("scheduler failure is a 500", func(t *testing.T) {
		r := newTestRouter(&fakeScheduler{err: assert.AnError}, &fakeJobReader{})

		w := doJSON(r, http.MethodPost, "/api/v1/triggers/status-change", `{
			"client_id": 7,
			"status": "No Show"
		}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestScheduleManual(t *testing.T) {
	t.Run("created with job id", func(t *testing.T) {
		r := newTestRouter(&fakeScheduler{jobID: testJobID}, &fakeJobReader{})

		w := doJSON(r, http.MethodPost, "/api/v1/jobs", `{
			"client_id": 7,
			"send_time": "2025-06-03T09:30:00Z",
			"body": "Your hearing is tomorrow at 9am."
		}`)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, testJobID, resp["job_id"])
	})

	t.Run("unknown client is a 404", func(t *testing.T) {
		r := newTestRouter(&fakeScheduler{err: domain.ErrClientNotFound}, &fakeJobReader{})

		w := doJSON(r, http.MethodPost, "/api/v1/jobs", `{
			"client_id": 99,
			"send_time": "2025-06-03T09:30:00Z",
			"body": "Reminder"
		}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejects missing body", func(t *testing.T) {
		r := newTestRouter(&fakeScheduler{}, &fakeJobReader{})

		w := doJSON(r, http.MethodPost, "/api/v1/jobs", `{
			"client_id": 7,
			"send_time": "2025-06-03T09:30:00Z"
		}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects non-RFC3339 send time", func(t *testing.T) {
		r := newTestRouter(&fakeScheduler{}, &fakeJobReader{})

		w := doJSON(r, http.MethodPost, "/api/v1/jobs", `{
			"client_id": 7,
			"send_time": "tomorrow",
			"body": "Reminder"
		}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetJob(t *testing.T) {
	t.Run("returns job with RFC3339 timestamps", func(t *testing.T) {
		job := &domain.ScheduledJob{
			ID:        testJobID,
			ClientID:  7,
			SendTime:  time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC).UnixMilli(),
			Message:   "Hi Jane, sorry we missed you.",
			Status:    domain.JobStatusPending,
			CreatedAt: time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC).UnixMilli(),
			UpdatedAt: time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC).UnixMilli(),
		}
		r := newTestRouter(&fakeScheduler{}, &fakeJobReader{job: job})

		w := doJSON(r, http.MethodGet, "/api/v1/jobs/"+testJobID, "")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, testJobID, resp["job_id"])
		assert.Equal(t, "2025-06-02T15:00:00Z", resp["send_time"])
		assert.Equal(t, "pending", resp["status"])
		assert.NotContains(t, resp, "last_error")
		assert.NotContains(t, resp, "sent_at")
	})

	t.Run("unknown job is a 404", func(t *testing.T) {
		r := newTestRouter(&fakeScheduler{}, &fakeJobReader{err: domain.ErrJobNotFound})

		w := doJSON(r, http.MethodGet, "/api/v1/jobs/"+testJobID, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejects malformed uuid", func(t *testing.T) {
		r := newTestRouter(&fakeScheduler{}, &fakeJobReader{})

		w := doJSON(r, http.MethodGet, "/api/v1/jobs/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListJobs(t *testing.T) {
	jobs := &fakeJobReader{jobs: []domain.ScheduledJob{
		{ID: testJobID, ClientID: 7, Status: domain.JobStatusFailed},
	}}
	r := newTestRouter(&fakeScheduler{}, jobs)

	w := doJSON(r, http.MethodGet, "/api/v1/jobs?client_id=7&status=failed&limit=20", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.JobFilter{ClientID: 7, Status: "failed", Limit: 20}, jobs.lastFilter)

	var resp map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp["jobs"], 1)
	assert.Equal(t, "failed", resp["jobs"][0]["status"])
}

func TestCancelJob(t *testing.T) {
	t.Run("cancels a pending job", func(t *testing.T) {
		r := newTestRouter(&fakeScheduler{}, &fakeJobReader{canceled: true})

		w := doJSON(r, http.MethodPost, "/api/v1/jobs/"+testJobID+"/cancel", "")

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, domain.JobStatusCanceled, resp["status"])
		assert.Equal(t, testJobID, resp["job_id"])
	})

	t.Run("in-flight or terminal job is a conflict", func(t *testing.T) {
		r := newTestRouter(&fakeScheduler{}, &fakeJobReader{canceled: false})

		w := doJSON(r, http.MethodPost, "/api/v1/jobs/"+testJobID+"/cancel", "")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("rejects malformed uuid", func(t *testing.T) {
		r := newTestRouter(&fakeScheduler{}, &fakeJobReader{})

		w := doJSON(r, http.MethodPost, "/api/v1/jobs/bogus/cancel", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
