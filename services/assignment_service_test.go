package services

import (
	"context"
	"testing"
	"time"

	"review-quorum-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateAssignmentRejectsSecondLive(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewAssignmentService(db)

	seedReviewer(t, db, "0xaaa")
	sub := seedSubmission(t, db, 1)

	first, err := svc.CreateAssignment(ctx, sub.SubmissionID, "0xaaa", 24*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, first.AssignmentID)
	assert.Equal(t, models.AssignmentStatusPending, first.Status)

	_, err = svc.CreateAssignment(ctx, sub.SubmissionID, "0xaaa", 24*time.Hour)
	assert.ErrorIs(t, err, ErrDuplicateAssignment)

	// Once the live assignment is retired a new one is allowed again.
	changed, err := svc.Expire(ctx, first.AssignmentID)
	require.NoError(t, err)
	assert.True(t, changed)

	second, err := svc.CreateAssignment(ctx, sub.SubmissionID, "0xaaa", 24*time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, first.AssignmentID, second.AssignmentID)
}

// The unique index on live_key must hold the one-live-assignment-per-pair
// rule even when an insert arrives without the service's count pre-check,
// as happens when two transactions race the count on snapshot reads.
func TestLiveAssignmentUniqueAtStorageLayer(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewAssignmentService(db)

	seedReviewer(t, db, "0xaaa")
	sub := seedSubmission(t, db, 1)
	first := seedAssignment(t, db, sub.SubmissionID, "0xaaa", 24*time.Hour)

	dup := models.Assignment{
		SubmissionID:   sub.SubmissionID,
		ReviewerWallet: "0xaaa",
		Status:         models.AssignmentStatusPending,
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	}
	err := db.Create(&dup).Error
	require.Error(t, err, "index must refuse a second live row without any pre-check")
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// Retiring the live row clears the key and frees the pair again.
	changed, err := svc.Expire(ctx, first.AssignmentID)
	require.NoError(t, err)
	assert.True(t, changed)

	var retired models.Assignment
	require.NoError(t, db.First(&retired, "assignment_id = ?", first.AssignmentID).Error)
	assert.Nil(t, retired.LiveKey)

	replacement, err := svc.CreateAssignment(ctx, sub.SubmissionID, "0xaaa", 24*time.Hour)
	require.NoError(t, err)
	require.NotNil(t, replacement.LiveKey)
	assert.Equal(t, models.LiveAssignmentKey(sub.SubmissionID, "0xaaa"), *replacement.LiveKey)
}

// Voting is the other terminal transition; it must release the live key so
// the pair's history never blocks unrelated bookkeeping on the index.
func TestVoteClearsLiveKey(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	seedReviewer(t, db, "0xaaa")
	sub := seedSubmission(t, db, 1)
	a := seedAssignment(t, db, sub.SubmissionID, "0xaaa", 24*time.Hour)

	votes := NewVoteService(db, testSettings())
	_, err := votes.RecordVote(ctx, a.AssignmentID, "0xaaa", models.VoteVerdictApprove)
	require.NoError(t, err)

	var stored models.Assignment
	require.NoError(t, db.First(&stored, "assignment_id = ?", a.AssignmentID).Error)
	assert.Equal(t, models.AssignmentStatusVoted, stored.Status)
	assert.Nil(t, stored.LiveKey)
}

func TestExpireIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewAssignmentService(db)

	seedReviewer(t, db, "0xaaa")
	sub := seedSubmission(t, db, 1)
	a := seedAssignment(t, db, sub.SubmissionID, "0xaaa", -time.Hour)

	changed, err := svc.Expire(ctx, a.AssignmentID)
	require.NoError(t, err)
	assert.True(t, changed)

	// Overlapping sweeps call expire again; that must be a quiet no-op.
	changed, err = svc.Expire(ctx, a.AssignmentID)
	require.NoError(t, err)
	assert.False(t, changed)

	var stored models.Assignment
	require.NoError(t, db.First(&stored, "assignment_id = ?", a.AssignmentID).Error)
	assert.Equal(t, models.AssignmentStatusReassigned, stored.Status)
}

func TestExpireLeavesVotedAlone(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewAssignmentService(db)

	seedReviewer(t, db, "0xaaa")
	sub := seedSubmission(t, db, 1)
	a := seedAssignment(t, db, sub.SubmissionID, "0xaaa", 24*time.Hour)
	require.NoError(t, db.Model(&models.Assignment{}).
		Where("assignment_id = ?", a.AssignmentID).
		Update("status", models.AssignmentStatusVoted).Error)

	changed, err := svc.Expire(ctx, a.AssignmentID)
	require.NoError(t, err)
	assert.False(t, changed)

	var stored models.Assignment
	require.NoError(t, db.First(&stored, "assignment_id = ?", a.AssignmentID).Error)
	assert.Equal(t, models.AssignmentStatusVoted, stored.Status)
}

func TestHistoryForSubmissionListsAllInstancesOldestFirst(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewAssignmentService(db)

	seedReviewer(t, db, "0xaaa")
	seedReviewer(t, db, "0xbbb")
	sub := seedSubmission(t, db, 1)
	other := seedSubmission(t, db, 2)

	first := seedAssignment(t, db, sub.SubmissionID, "0xaaa", -time.Hour)
	_, err := svc.Expire(ctx, first.AssignmentID)
	require.NoError(t, err)
	seedAssignment(t, db, sub.SubmissionID, "0xbbb", 24*time.Hour)
	seedAssignment(t, db, other.SubmissionID, "0xaaa", 24*time.Hour)

	history, err := svc.HistoryForSubmission(ctx, sub.SubmissionID)
	require.NoError(t, err)
	require.Len(t, history, 2, "retired instances stay in the history")
	assert.Equal(t, first.AssignmentID, history[0].AssignmentID)
	assert.Equal(t, models.AssignmentStatusReassigned, history[0].Status)
	for i := 1; i < len(history); i++ {
		assert.True(t, !history[i].CreatedAt.Before(history[i-1].CreatedAt), "history must be oldest first")
	}
}

func TestPendingForReviewerSkipsExpiredAndForeign(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewAssignmentService(db)

	seedReviewer(t, db, "0xaaa")
	seedReviewer(t, db, "0xbbb")
	s1 := seedSubmission(t, db, 1)
	s2 := seedSubmission(t, db, 2)
	s3 := seedSubmission(t, db, 3)

	live := seedAssignment(t, db, s1.SubmissionID, "0xaaa", 24*time.Hour)
	seedAssignment(t, db, s2.SubmissionID, "0xaaa", -time.Hour)   // lapsed
	seedAssignment(t, db, s3.SubmissionID, "0xbbb", 24*time.Hour) // other reviewer

	assignments, err := svc.PendingForReviewer(ctx, "0xaaa")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, live.AssignmentID, assignments[0].AssignmentID)
}
