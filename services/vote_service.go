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

// VoteService owns the vote-and-settle unit. RecordVote is the single
// serialization point of the workflow: vote write, quorum evaluation and
// settlement share one transaction so a decisive verdict can never exist
// without its vote, and vice versa.
type VoteService struct {
	db       *gorm.DB
	settings Settings
	audit    *AuditService
	notify   *NotificationService
}

func NewVoteService(db *gorm.DB, settings Settings) *VoteService {
	if db == nil {
		db = config.DB
	}
	return &VoteService{
		db:       db,
		settings: settings,
		audit:    NewAuditService(db),
		notify:   NewNotificationService(db),
	}
}

// VoteResult reports what a successful RecordVote did.
type VoteResult struct {
	Vote    models.Vote `json:"vote"`
	Settled bool        `json:"settled"`
	Verdict string      `json:"verdict"`
}

// RecordVote validates and records a reviewer's verdict for a pending
// assignment, then evaluates quorum against the committed vote set and
// settles the submission if a side reached the threshold. Any failure
// aborts the whole unit, including the vote write; callers may retry the
// entire call safely.
func (s *VoteService) RecordVote(ctx context.Context, assignmentID, reviewerWallet, verdict string) (*VoteResult, error) {
	if verdict != models.VoteVerdictApprove && verdict != models.VoteVerdictReject {
		return nil, ErrInvalidVerdict
	}

	now := time.Now()
	var (
		result     VoteResult
		submission models.Submission
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assignment models.Assignment
		if err := tx.Where("assignment_id = ?", assignmentID).First(&assignment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return fmt.Errorf("failed to load assignment: %w", err)
		}

		if assignment.ReviewerWallet != reviewerWallet {
			return ErrNotAssignmentHolder
		}
		// A reassigned instance was retired for timeout, so the holder
		// gets the expiry signal rather than a generic state error.
		if assignment.Status == models.AssignmentStatusReassigned {
			return ErrAssignmentExpired
		}
		if assignment.Status != models.AssignmentStatusPending {
			return ErrAssignmentNotPending
		}
		if assignment.IsExpired(now) {
			return ErrAssignmentExpired
		}

		if err := tx.Where("submission_id = ?", assignment.SubmissionID).First(&submission).Error; err != nil {
			return fmt.Errorf("failed to load submission: %w", err)
		}
		if submission.IsClosed() {
			return ErrSubmissionClosed
		}

		// Claim the assignment with a conditional update; a concurrent
		// vote on the same assignment loses here instead of double-writing.
		res := tx.Model(&models.Assignment{}).
			Where("assignment_id = ? AND status = ?", assignmentID, models.AssignmentStatusPending).
			Updates(map[string]interface{}{
				"status":     models.AssignmentStatusVoted,
				"live_key":   nil,
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark assignment voted: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAssignmentNotPending
		}

		vote := models.Vote{
			SubmissionID:   assignment.SubmissionID,
			ReviewerWallet: reviewerWallet,
			AssignmentID:   assignmentID,
			Verdict:        verdict,
			CastAt:         now,
		}
		if err := tx.Create(&vote).Error; err != nil {
			return fmt.Errorf("failed to record vote: %w", err)
		}
		result.Vote = vote

		var votes []models.Vote
		if err := tx.Where("submission_id = ?", assignment.SubmissionID).Find(&votes).Error; err != nil {
			return fmt.Errorf("failed to load votes: %w", err)
		}
		weights, err := reviewerWeights(tx, votes)
		if err != nil {
			return err
		}

		outcome := EvaluateQuorum(votes, weights, s.settings.QuorumSize)
		result.Verdict = outcome
		if outcome == VerdictUndecided {
			return nil
		}

		settled, err := settleSubmission(tx, assignment.SubmissionID, outcome, s.settings.CommissionAmount, now)
		if err != nil {
			return err
		}
		result.Settled = settled
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Side effects stay outside the transaction boundary; their failure
	// never unwinds the committed vote or settlement.
	s.audit.Record(ctx, models.AuditLogEntry{
		Action:      "vote_cast",
		EntityType:  "assignment",
		EntityID:    assignmentID,
		ActorWallet: &reviewerWallet,
		AfterState:  auditSnapshot(result.Vote),
	})
	if result.Settled {
		s.audit.Record(ctx, models.AuditLogEntry{
			Action:      "submission_settled",
			EntityType:  "submission",
			EntityID:    fmt.Sprintf("%d", submission.SubmissionID),
			ActorWallet: &reviewerWallet,
			BeforeState: auditSnapshot(submission),
			AfterState:  auditSnapshot(map[string]interface{}{"status": result.Verdict, "closed_at": now}),
		})
		s.notify.SubmissionDecided(ctx, submission.UserID, submission.SubmissionID, result.Verdict)
	}

	return &result, nil
}

// HistoryForReviewer returns every vote the reviewer has cast, newest first.
func (s *VoteService) HistoryForReviewer(ctx context.Context, reviewerWallet string) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.db.WithContext(ctx).
		Where("reviewer_wallet = ?", reviewerWallet).
		Order("cast_at DESC").
		Find(&votes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load review history: %w", err)
	}
	return votes, nil
}

// reviewerWeights loads voting weights for every wallet in the vote set.
// Wallets without a registry row fall back to weight 1 in the evaluator.
func reviewerWeights(tx *gorm.DB, votes []models.Vote) (map[string]int, error) {
	if len(votes) == 0 {
		return map[string]int{}, nil
	}
	wallets := make([]string, 0, len(votes))
	for _, v := range votes {
		wallets = append(wallets, v.ReviewerWallet)
	}

	var reviewers []models.Reviewer
	if err := tx.Where("wallet_address IN ?", wallets).Find(&reviewers).Error; err != nil {
		return nil, fmt.Errorf("failed to load reviewer weights: %w", err)
	}

	weights := make(map[string]int, len(reviewers))
	for i := range reviewers {
		weights[reviewers[i].WalletAddress] = reviewers[i].Weight()
	}
	return weights, nil
}
