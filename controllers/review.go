package controllers

import (
	"errors"
	"net/http"
	"strings"

	"review-quorum-api/config"
	"review-quorum-api/services"
	"review-quorum-api/utils"

	"github.com/gin-gonic/gin"
)

// GetMyAssignments lists the caller's pending, unexpired assignments.
func GetMyAssignments(c *gin.Context) {
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}

	svc := services.NewAssignmentService(config.DB)
	assignments, err := svc.PendingForReviewer(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assignments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"assignments": assignments,
		"total":       len(assignments),
	})
}

// CastVote records a verdict for one of the caller's assignments. Vote,
// quorum evaluation and settlement run as one unit in the service layer.
func CastVote(c *gin.Context) {
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}

	var req struct {
		AssignmentID string `json:"assignment_id" binding:"required"`
		Verdict      string `json:"verdict" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	assignmentID := utils.SanitizeInput(req.AssignmentID)
	verdict := strings.ToLower(utils.SanitizeInput(req.Verdict))
	if !utils.ValidateAssignmentID(assignmentID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment ID"})
		return
	}

	svc := services.NewVoteService(config.DB, services.LoadSettings())
	result, err := svc.RecordVote(c.Request.Context(), assignmentID, wallet, verdict)
	if err != nil {
		status, message := voteErrorResponse(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	message := "Vote recorded"
	if result.Settled {
		message = "Vote recorded; submission " + result.Verdict
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"vote":    result.Vote,
		"settled": result.Settled,
	})
}

// GetMyReviewHistory returns every vote the caller has cast, newest first.
func GetMyReviewHistory(c *gin.Context) {
	wallet, ok := walletFromContext(c)
	if !ok {
		return
	}

	svc := services.NewVoteService(config.DB, services.LoadSettings())
	votes, err := svc.HistoryForReviewer(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch review history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"votes":   votes,
		"total":   len(votes),
	})
}

func walletFromContext(c *gin.Context) (string, bool) {
	walletValue, exists := c.Get("wallet")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Wallet context missing"})
		return "", false
	}
	wallet, ok := walletValue.(string)
	if !ok || wallet == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid wallet context"})
		return "", false
	}
	return wallet, true
}

func voteErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidVerdict):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrAssignmentNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrNotAssignmentHolder):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrAssignmentNotPending):
		return http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrSubmissionClosed):
		return http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrAssignmentExpired):
		return http.StatusGone, "assignment has expired, check for a new assignment"
	default:
		return http.StatusInternalServerError, "Failed to record vote"
	}
}
