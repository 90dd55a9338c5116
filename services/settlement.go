package services

import (
	"fmt"
	"time"

	"review-quorum-api/models"

	"gorm.io/gorm"
)

// settleSubmission makes a decisive verdict durable. It runs inside the same
// transaction as the triggering vote. The conditional status flip is the
// race guard: when two concurrent votes both cross the threshold, only one
// sees RowsAffected > 0 and the other call degrades to a no-op, which also
// makes crash-retry re-entry safe.
//
// Returns true when this call performed the transition.
func settleSubmission(tx *gorm.DB, submissionID int, verdict string, commissionAmount int, now time.Time) (bool, error) {
	if verdict != models.SubmissionStatusApproved && verdict != models.SubmissionStatusRejected {
		return false, fmt.Errorf("settlement called with non-terminal verdict %q", verdict)
	}

	res := tx.Model(&models.Submission{}).
		Where("submission_id = ? AND status = ?", submissionID, models.SubmissionStatusPending).
		Updates(map[string]interface{}{
			"status":     verdict,
			"closed_at":  now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to close submission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Already settled by a concurrent or earlier invocation.
		return false, nil
	}

	if err := mintCommissions(tx, submissionID, commissionAmount, now); err != nil {
		return false, err
	}
	return true, nil
}

// mintCommissions creates exactly one commission per reviewer who voted on
// the submission. Pairs that already have a commission are skipped, so a
// retried settlement never double-pays; the unique index on
// (reviewer_wallet, submission_id) backs this up at the storage layer.
func mintCommissions(tx *gorm.DB, submissionID int, amount int, now time.Time) error {
	var votes []models.Vote
	if err := tx.Where("submission_id = ?", submissionID).Find(&votes).Error; err != nil {
		return fmt.Errorf("failed to load votes for settlement: %w", err)
	}

	seen := make(map[string]bool, len(votes))
	for _, vote := range votes {
		if seen[vote.ReviewerWallet] {
			continue
		}
		seen[vote.ReviewerWallet] = true

		var existing int64
		err := tx.Model(&models.Commission{}).
			Where("reviewer_wallet = ? AND submission_id = ?", vote.ReviewerWallet, submissionID).
			Count(&existing).Error
		if err != nil {
			return fmt.Errorf("failed to check existing commission: %w", err)
		}
		if existing > 0 {
			continue
		}

		commission := models.Commission{
			ReviewerWallet: vote.ReviewerWallet,
			SubmissionID:   submissionID,
			Amount:         amount,
			CreatedAt:      now,
		}
		if err := tx.Create(&commission).Error; err != nil {
			return fmt.Errorf("failed to mint commission for %s: %w", vote.ReviewerWallet, err)
		}
	}
	return nil
}
