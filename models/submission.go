package models

import "time"

// Submission statuses (exact match with submissions.status values).
const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"
)

// Submission is a user's proof-of-activity artifact awaiting peer review.
// Rows are created by the intake flow; only settlement mutates status,
// and only once: pending -> approved or pending -> rejected.
type Submission struct {
	SubmissionID int        `gorm:"primaryKey;autoIncrement;column:submission_id" json:"submission_id"`
	UserID       int        `gorm:"column:user_id;index" json:"user_id"`
	WeekNumber   int        `gorm:"column:week_number" json:"week_number"`
	ProofURL     string     `gorm:"column:proof_url" json:"proof_url"`
	Status       string     `gorm:"column:status;default:pending;index" json:"status"`
	ClosedAt     *time.Time `gorm:"column:closed_at" json:"closed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for Submission.
func (Submission) TableName() string {
	return "submissions"
}

// IsClosed reports whether the submission has reached a terminal verdict.
func (s *Submission) IsClosed() bool {
	return s.Status != SubmissionStatusPending
}
