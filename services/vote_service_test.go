package services

import (
	"context"
	"testing"
	"time"

	"review-quorum-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordVoteValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownAssignment", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewVoteService(db, testSettings())

		_, err := svc.RecordVote(ctx, "no-such-id", "0xaaa", models.VoteVerdictApprove)
		assert.ErrorIs(t, err, ErrAssignmentNotFound)
	})

	t.Run("InvalidVerdict", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewVoteService(db, testSettings())

		_, err := svc.RecordVote(ctx, "anything", "0xaaa", "maybe")
		assert.ErrorIs(t, err, ErrInvalidVerdict)
	})

	t.Run("WrongHolder", func(t *testing.T) {
		db := setupTestDB(t)
		seedReviewer(t, db, "0xaaa")
		sub := seedSubmission(t, db, 1)
		a := seedAssignment(t, db, sub.SubmissionID, "0xaaa", 24*time.Hour)

		svc := NewVoteService(db, testSettings())
		_, err := svc.RecordVote(ctx, a.AssignmentID, "0xbbb", models.VoteVerdictApprove)
		assert.ErrorIs(t, err, ErrNotAssignmentHolder)

		// Nothing was written.
		assert.EqualValues(t, 0, countRows(t, db, &models.Vote{}, "1 = 1"))
	})

	t.Run("ExpiredAssignment", func(t *testing.T) {
		db := setupTestDB(t)
		seedReviewer(t, db, "0xaaa")
		sub := seedSubmission(t, db, 1)
		a := seedAssignment(t, db, sub.SubmissionID, "0xaaa", -time.Hour)

		svc := NewVoteService(db, testSettings())
		_, err := svc.RecordVote(ctx, a.AssignmentID, "0xaaa", models.VoteVerdictApprove)
		assert.ErrorIs(t, err, ErrAssignmentExpired)
	})

	t.Run("DoubleVote", func(t *testing.T) {
		db := setupTestDB(t)
		seedReviewer(t, db, "0xaaa")
		sub := seedSubmission(t, db, 1)
		a := seedAssignment(t, db, sub.SubmissionID, "0xaaa", 24*time.Hour)

		svc := NewVoteService(db, testSettings())
		_, err := svc.RecordVote(ctx, a.AssignmentID, "0xaaa", models.VoteVerdictApprove)
		require.NoError(t, err)

		_, err = svc.RecordVote(ctx, a.AssignmentID, "0xaaa", models.VoteVerdictReject)
		assert.ErrorIs(t, err, ErrAssignmentNotPending)
		assert.EqualValues(t, 1, countRows(t, db, &models.Vote{}, "1 = 1"))
	})
}

// Scenario: three reviewers all approve; the third commit settles the
// submission with exactly one commission per voter and a closing timestamp.
func TestUnanimousPanelSettlesOnThirdVote(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewVoteService(db, testSettings())

	sub := seedSubmission(t, db, 7)
	wallets := []string{"0xaaa", "0xbbb", "0xccc"}
	assignments := make([]*models.Assignment, len(wallets))
	for i, w := range wallets {
		seedReviewer(t, db, w)
		assignments[i] = seedAssignment(t, db, sub.SubmissionID, w, 24*time.Hour)
	}

	for i := 0; i < 2; i++ {
		result, err := svc.RecordVote(ctx, assignments[i].AssignmentID, wallets[i], models.VoteVerdictApprove)
		require.NoError(t, err)
		assert.False(t, result.Settled)
		assert.Equal(t, VerdictUndecided, result.Verdict)
	}

	var mid models.Submission
	require.NoError(t, db.First(&mid, "submission_id = ?", sub.SubmissionID).Error)
	assert.Equal(t, models.SubmissionStatusPending, mid.Status, "submission must stay open below quorum")

	result, err := svc.RecordVote(ctx, assignments[2].AssignmentID, wallets[2], models.VoteVerdictApprove)
	require.NoError(t, err)
	assert.True(t, result.Settled)
	assert.Equal(t, models.SubmissionStatusApproved, result.Verdict)

	var settled models.Submission
	require.NoError(t, db.First(&settled, "submission_id = ?", sub.SubmissionID).Error)
	assert.Equal(t, models.SubmissionStatusApproved, settled.Status)
	require.NotNil(t, settled.ClosedAt)

	assert.EqualValues(t, 3, countRows(t, db, &models.Commission{}, "submission_id = ?", sub.SubmissionID))
	for _, w := range wallets {
		assert.EqualValues(t, 1, countRows(t, db, &models.Commission{}, "submission_id = ? AND reviewer_wallet = ?", sub.SubmissionID, w))
	}
}

// Scenario: a 2-1 split never reaches quorum; the submission stays pending
// and no commissions are paid.
func TestSplitPanelStaysPending(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewVoteService(db, testSettings())

	sub := seedSubmission(t, db, 7)
	verdicts := map[string]string{
		"0xaaa": models.VoteVerdictApprove,
		"0xbbb": models.VoteVerdictApprove,
		"0xccc": models.VoteVerdictReject,
	}
	for w, verdict := range verdicts {
		seedReviewer(t, db, w)
		a := seedAssignment(t, db, sub.SubmissionID, w, 24*time.Hour)
		result, err := svc.RecordVote(ctx, a.AssignmentID, w, verdict)
		require.NoError(t, err)
		assert.False(t, result.Settled)
	}

	var submission models.Submission
	require.NoError(t, db.First(&submission, "submission_id = ?", sub.SubmissionID).Error)
	assert.Equal(t, models.SubmissionStatusPending, submission.Status)
	assert.Nil(t, submission.ClosedAt)
	assert.EqualValues(t, 0, countRows(t, db, &models.Commission{}, "1 = 1"))
}

// A vote arriving after quorum was reached through other assignments gets
// the already-decided signal, not a vote write.
func TestVoteAfterSettlementRejected(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewVoteService(db, testSettings())

	sub := seedSubmission(t, db, 7)
	wallets := []string{"0xaaa", "0xbbb", "0xccc", "0xddd"}
	assignments := make([]*models.Assignment, len(wallets))
	for i, w := range wallets {
		seedReviewer(t, db, w)
		assignments[i] = seedAssignment(t, db, sub.SubmissionID, w, 24*time.Hour)
	}

	for i := 0; i < 3; i++ {
		_, err := svc.RecordVote(ctx, assignments[i].AssignmentID, wallets[i], models.VoteVerdictReject)
		require.NoError(t, err)
	}

	_, err := svc.RecordVote(ctx, assignments[3].AssignmentID, wallets[3], models.VoteVerdictReject)
	assert.ErrorIs(t, err, ErrSubmissionClosed)
	assert.EqualValues(t, 3, countRows(t, db, &models.Vote{}, "1 = 1"))
	assert.EqualValues(t, 3, countRows(t, db, &models.Commission{}, "1 = 1"))
}

// Settlement re-entry must be a no-op: one status transition, no duplicate
// commissions, regardless of how many times it runs.
func TestSettlementIdempotent(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()

	sub := seedSubmission(t, db, 7)
	for _, w := range []string{"0xaaa", "0xbbb", "0xccc"} {
		seedReviewer(t, db, w)
		a := seedAssignment(t, db, sub.SubmissionID, w, 24*time.Hour)
		vote := models.Vote{
			SubmissionID:   sub.SubmissionID,
			ReviewerWallet: w,
			AssignmentID:   a.AssignmentID,
			Verdict:        models.VoteVerdictApprove,
			CastAt:         now,
		}
		require.NoError(t, db.Create(&vote).Error)
	}

	first, err := settleSubmission(db, sub.SubmissionID, models.SubmissionStatusApproved, 10, now)
	require.NoError(t, err)
	assert.True(t, first)

	var closedAt time.Time
	var settled models.Submission
	require.NoError(t, db.First(&settled, "submission_id = ?", sub.SubmissionID).Error)
	require.NotNil(t, settled.ClosedAt)
	closedAt = *settled.ClosedAt

	for i := 0; i < 3; i++ {
		again, err := settleSubmission(db, sub.SubmissionID, models.SubmissionStatusApproved, 10, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, again, "re-entry must not transition again")
	}

	require.NoError(t, db.First(&settled, "submission_id = ?", sub.SubmissionID).Error)
	assert.Equal(t, models.SubmissionStatusApproved, settled.Status)
	require.NotNil(t, settled.ClosedAt)
	assert.WithinDuration(t, closedAt, *settled.ClosedAt, time.Second, "closing timestamp must not move")
	assert.EqualValues(t, 3, countRows(t, db, &models.Commission{}, "1 = 1"))
}

// A commission row that survived a mid-commit crash must be skipped when the
// settlement retries.
func TestSettlementSkipsExistingCommissions(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()

	sub := seedSubmission(t, db, 7)
	for _, w := range []string{"0xaaa", "0xbbb", "0xccc"} {
		seedReviewer(t, db, w)
		a := seedAssignment(t, db, sub.SubmissionID, w, 24*time.Hour)
		vote := models.Vote{
			SubmissionID:   sub.SubmissionID,
			ReviewerWallet: w,
			AssignmentID:   a.AssignmentID,
			Verdict:        models.VoteVerdictReject,
			CastAt:         now,
		}
		require.NoError(t, db.Create(&vote).Error)
	}

	// Pre-existing commission for one voter, as left by a partial retry.
	require.NoError(t, db.Create(&models.Commission{
		ReviewerWallet: "0xaaa",
		SubmissionID:   sub.SubmissionID,
		Amount:         10,
		CreatedAt:      now,
	}).Error)

	done, err := settleSubmission(db, sub.SubmissionID, models.SubmissionStatusRejected, 10, now)
	require.NoError(t, err)
	assert.True(t, done)

	assert.EqualValues(t, 3, countRows(t, db, &models.Commission{}, "1 = 1"))
	assert.EqualValues(t, 1, countRows(t, db, &models.Commission{}, "reviewer_wallet = ?", "0xaaa"))
}

func TestReviewHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewVoteService(db, testSettings())

	seedReviewer(t, db, "0xaaa")
	for i := 0; i < 3; i++ {
		sub := seedSubmission(t, db, 10+i)
		a := seedAssignment(t, db, sub.SubmissionID, "0xaaa", 24*time.Hour)
		vote := models.Vote{
			SubmissionID:   sub.SubmissionID,
			ReviewerWallet: "0xaaa",
			AssignmentID:   a.AssignmentID,
			Verdict:        models.VoteVerdictApprove,
			CastAt:         time.Now().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&vote).Error)
	}

	votes, err := svc.HistoryForReviewer(ctx, "0xaaa")
	require.NoError(t, err)
	require.Len(t, votes, 3)
	for i := 1; i < len(votes); i++ {
		assert.True(t, !votes[i-1].CastAt.Before(votes[i].CastAt), "history must be newest first")
	}
}
