package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"review-quorum-api/config"
	"review-quorum-api/models"
	"review-quorum-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RunReaperSweep triggers one reaper pass outside the schedule. Uses the
// same named lock as the background loop so a manual run cannot overlap it.
func RunReaperSweep(c *gin.Context) {
	svc := services.NewReaperService(config.DB, services.LoadSettings())
	summary, err := svc.Sweep(c.Request.Context(), services.ReaperLockName())
	if err != nil {
		if errors.Is(err, services.ErrReaperAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": summary,
	})
}

// EnsureAssignments bootstraps or tops up the panel for one submission.
func EnsureAssignments(c *gin.Context) {
	submissionID, err := strconv.Atoi(c.Param("id"))
	if err != nil || submissionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	svc := services.NewReaperService(config.DB, services.LoadSettings())
	wallets, err := svc.TopUp(c.Request.Context(), submissionID)
	if err != nil {
		if errors.Is(err, services.ErrSubmissionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create assignments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"assigned": wallets,
		"total":    len(wallets),
	})
}

// GetSubmissionAssignments returns a submission's full panel history,
// oldest first, for the admin review detail view.
func GetSubmissionAssignments(c *gin.Context) {
	submissionID, err := strconv.Atoi(c.Param("id"))
	if err != nil || submissionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	var submission models.Submission
	if err := config.DB.Where("submission_id = ?", submissionID).First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submission"})
		return
	}

	svc := services.NewAssignmentService(config.DB)
	assignments, err := svc.HistoryForSubmission(c.Request.Context(), submissionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assignments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"submission":  submission,
		"assignments": assignments,
		"total":       len(assignments),
	})
}

// ListAuditLogs returns recent audit entries for forensics, optionally
// filtered by entity_type/entity_id query params.
func ListAuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	svc := services.NewAuditService(config.DB)
	entries, err := svc.List(c.Request.Context(), c.Query("entity_type"), c.Query("entity_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"entries": entries,
		"total":   len(entries),
	})
}
