package services

import "errors"

// Sentinel errors surfaced to controllers. Anything not in this list is an
// infrastructure failure and maps to a 5xx.
var (
	// ErrInvalidVerdict is returned for a verdict outside approve/reject.
	ErrInvalidVerdict = errors.New("verdict must be either 'approve' or 'reject'")

	// ErrAssignmentNotFound is returned when the assignment id is unknown.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrNotAssignmentHolder is returned when the caller's wallet does not
	// match the assignment's reviewer.
	ErrNotAssignmentHolder = errors.New("assignment belongs to a different reviewer")

	// ErrAssignmentNotPending is returned when the assignment was already
	// voted on or reassigned.
	ErrAssignmentNotPending = errors.New("assignment is no longer pending")

	// ErrAssignmentExpired is returned when the assignment's TTL lapsed
	// before the vote arrived; the reviewer should poll for a fresh one.
	ErrAssignmentExpired = errors.New("assignment has expired")

	// ErrSubmissionClosed is returned when a vote arrives for a submission
	// that already reached a verdict.
	ErrSubmissionClosed = errors.New("submission is already decided")

	// ErrSubmissionNotFound is returned when the submission id is unknown.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrDuplicateAssignment is returned when the reviewer already holds a
	// live assignment for the submission.
	ErrDuplicateAssignment = errors.New("reviewer already holds a live assignment for this submission")

	// ErrReaperAlreadyRunning is returned when another instance holds the
	// sweep lock.
	ErrReaperAlreadyRunning = errors.New("assignment reaper is already running")
)
