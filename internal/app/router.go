package app

import (
	"nsi_edu_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)

		// Called by the grading subsystem once a submission is graded.
		api.POST("/attempts", c.attempt.Submit)
		api.POST("/hints/:id/use", c.attempt.UseHint)

		users := api.Group("/users/:id")
		{
			users.GET("/progress", c.progress.GetProgress)
			users.POST("/activity", c.progress.RecordActivity)
			users.POST("/reevaluate", c.progress.Reevaluate)
			// Manual corrections by staff tooling.
			users.POST("/xp", c.progress.AdjustXP)
			users.GET("/attempts", c.attempt.ListAttempts)
			users.GET("/exercises/:exercise_id", c.attempt.ExerciseStatus)
		}

		api.GET("/leaderboard", c.progress.GetLeaderboard)
		api.GET("/leaderboard/rank/:id", c.progress.GetRank)
		api.GET("/badges", c.progress.ListAwards)
	}
}
