package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"review-quorum-api/config"
	"review-quorum-api/models"

	"gorm.io/gorm"
)

// SelectorService computes the eligible reviewer pool for a submission and
// picks replacements. Exclusion rules, in order:
//
//  1. only active reviewers are eligible;
//  2. a reviewer never sees the same submission twice, whatever the
//     previous assignment's outcome;
//  3. a reviewer who voted on any other submission of the same submitter
//     inside the trailing collusion window is excluded.
type SelectorService struct {
	db       *gorm.DB
	settings Settings
}

func NewSelectorService(db *gorm.DB, settings Settings) *SelectorService {
	if db == nil {
		db = config.DB
	}
	return &SelectorService{db: db, settings: settings}
}

// SelectReviewers returns up to count eligible wallets for the submission.
// Fewer than count may come back when the pool is thin; the submission then
// simply waits longer for quorum.
func (s *SelectorService) SelectReviewers(ctx context.Context, submissionID, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	return selectReviewersTx(s.db.WithContext(ctx), submissionID, count, s.settings.CollusionWindow, time.Now())
}

func selectReviewersTx(tx *gorm.DB, submissionID, count int, collusionWindow time.Duration, now time.Time) ([]string, error) {
	var submission models.Submission
	if err := tx.Where("submission_id = ?", submissionID).First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	// Wallets with any assignment history on this submission, live or not.
	assignedBefore := tx.Model(&models.Assignment{}).
		Select("reviewer_wallet").
		Where("submission_id = ?", submissionID)

	// Wallets that voted on the submitter's other submissions recently.
	windowStart := now.Add(-collusionWindow)
	votedOnSubmitter := tx.Model(&models.Vote{}).
		Select("votes.reviewer_wallet").
		Joins("JOIN submissions ON submissions.submission_id = votes.submission_id").
		Where("submissions.user_id = ?", submission.UserID).
		Where("votes.submission_id <> ?", submissionID).
		Where("votes.cast_at > ?", windowStart)

	var pool []string
	err := tx.Model(&models.Reviewer{}).
		Select("wallet_address").
		Where("status = ?", models.ReviewerStatusActive).
		Where("wallet_address NOT IN (?)", assignedBefore).
		Where("wallet_address NOT IN (?)", votedOnSubmitter).
		Order("wallet_address ASC").
		Pluck("wallet_address", &pool).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible reviewers: %w", err)
	}

	// Uniform pick from the pool; order beyond that is deliberately
	// unspecified so no single reviewer is starved.
	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if len(pool) > count {
		pool = pool[:count]
	}
	return pool, nil
}
