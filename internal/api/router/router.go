package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lexrelay/messaging-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "messaging-api-service",
		})
	})

	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/triggers/status-change - enqueue follow-ups for a status change
		v1.POST("/triggers/status-change", jobHandler.Trigger)

		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - schedule an ad-hoc reminder
			jobs.POST("", jobHandler.ScheduleManual)

			// GET /api/v1/jobs - list scheduled jobs for the admin UI
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - get job details
			jobs.GET("/:job_id", jobHandler.GetJob)

			// POST /api/v1/jobs/:job_id/cancel - cancel a not-yet-sending job
			jobs.POST("/:job_id/cancel", jobHandler.CancelJob)
		}
	}

	return r
}
