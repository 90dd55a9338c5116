package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"review-quorum-api/config"
	"review-quorum-api/models"

	"gorm.io/gorm"
)

// AssignmentService owns the assignment state machine:
// pending -> voted | reassigned, both terminal for the instance.
type AssignmentService struct {
	db *gorm.DB
}

func NewAssignmentService(db *gorm.DB) *AssignmentService {
	if db == nil {
		db = config.DB
	}
	return &AssignmentService{db: db}
}

// CreateAssignment hands a submission to a reviewer with a fresh TTL. It
// fails with ErrDuplicateAssignment if the reviewer already holds a live
// assignment for that submission.
func (s *AssignmentService) CreateAssignment(ctx context.Context, submissionID int, reviewerWallet string, ttl time.Duration) (*models.Assignment, error) {
	var created *models.Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := createAssignmentTx(tx, submissionID, reviewerWallet, ttl, time.Now())
		if err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// createAssignmentTx is the in-transaction worker shared with the reaper's
// top-up path. The count gives the friendly error for the common case; the
// unique index on live_key is what actually holds the invariant when two
// transactions race past the count on snapshot reads.
func createAssignmentTx(tx *gorm.DB, submissionID int, reviewerWallet string, ttl time.Duration, now time.Time) (*models.Assignment, error) {
	var live int64
	err := tx.Model(&models.Assignment{}).
		Where("submission_id = ? AND reviewer_wallet = ? AND status = ?",
			submissionID, reviewerWallet, models.AssignmentStatusPending).
		Count(&live).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check live assignments: %w", err)
	}
	if live > 0 {
		return nil, ErrDuplicateAssignment
	}

	assignment := models.Assignment{
		SubmissionID:   submissionID,
		ReviewerWallet: reviewerWallet,
		Status:         models.AssignmentStatusPending,
		ExpiresAt:      now.Add(ttl),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.Create(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateAssignment
		}
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	return &assignment, nil
}

// Expire transitions a pending assignment to reassigned. It is a no-op
// when the assignment is already terminal so overlapping reaper sweeps stay
// safe; the returned bool reports whether this call made the transition.
func (s *AssignmentService) Expire(ctx context.Context, assignmentID string) (bool, error) {
	return expireAssignmentTx(s.db.WithContext(ctx), assignmentID, time.Now())
}

func expireAssignmentTx(tx *gorm.DB, assignmentID string, now time.Time) (bool, error) {
	res := tx.Model(&models.Assignment{}).
		Where("assignment_id = ? AND status = ?", assignmentID, models.AssignmentStatusPending).
		Updates(map[string]interface{}{
			"status":     models.AssignmentStatusReassigned,
			"live_key":   nil,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to expire assignment: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// PendingForReviewer returns the reviewer's live, unexpired assignments,
// soonest deadline first. Backs the "my assignments" view.
func (s *AssignmentService) PendingForReviewer(ctx context.Context, reviewerWallet string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := s.db.WithContext(ctx).
		Where("reviewer_wallet = ? AND status = ? AND expires_at > ?",
			reviewerWallet, models.AssignmentStatusPending, time.Now()).
		Order("expires_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending assignments: %w", err)
	}
	return assignments, nil
}

// HistoryForSubmission returns every assignment ever created for a
// submission, oldest first.
func (s *AssignmentService) HistoryForSubmission(ctx context.Context, submissionID int) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list submission assignments: %w", err)
	}
	return assignments, nil
}
