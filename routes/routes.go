package routes

import (
	"review-quorum-api/controllers"
	"review-quorum-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Review Quorum API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Reviewer surface
			protected.GET("/assignments", controllers.GetMyAssignments)
			protected.POST("/votes", controllers.CastVote)
			protected.GET("/reviews", controllers.GetMyReviewHistory)

			// Admin surface
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(middleware.RoleAdmin))
			{
				admin.POST("/reaper/run", controllers.RunReaperSweep)
				admin.POST("/submissions/:id/assignments", controllers.EnsureAssignments)
				admin.GET("/submissions/:id/assignments", controllers.GetSubmissionAssignments)
				admin.GET("/audit-logs", controllers.ListAuditLogs)
			}
		}
	}

	// 404 catch-all
	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Endpoint not found"})
	})
}
