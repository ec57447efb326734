package router

import (
	"net/http"

	"github.com/cuongbtq/interpreter-booking/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware(deps.Logger))
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "interpreter-booking-api",
		})
	})

	jobHandler := handler.NewJobHandler(deps)

	v1 := r.Group("/api/v1")
	v1.Use(ActorMiddleware(deps.Store))
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobHandler.CreateBooking)
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/eligible", jobHandler.EligibleJobs)

			jobs.GET("/:job_id", jobHandler.GetJob)
			jobs.PATCH("/:job_id", jobHandler.UpdateJob)
			jobs.GET("/:job_id/translators", jobHandler.EligibleTranslators)
			jobs.GET("/:job_id/assignments", jobHandler.Assignments)
			jobs.POST("/:job_id/accept", jobHandler.AcceptJob)
			jobs.POST("/:job_id/cancel", jobHandler.CancelJob)
			jobs.POST("/:job_id/end", jobHandler.EndSession)
			jobs.POST("/:job_id/no-show", jobHandler.CustomerNoShow)

			jobs.POST("/:job_id/notifications/push", jobHandler.ResendNotifications)
			jobs.POST("/:job_id/notifications/sms", jobHandler.ResendSMS)
			jobs.POST("/:job_id/notifications/expired", jobHandler.NotifyExpired)
		}
	}

	return r
}
