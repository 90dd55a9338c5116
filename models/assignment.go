package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Assignment statuses. pending is the only live state; voted and reassigned
// are terminal for the assignment instance.
const (
	AssignmentStatusPending    = "pending"
	AssignmentStatusVoted      = "voted"
	AssignmentStatusReassigned = "reassigned"
)

// Assignment is a time-boxed obligation for one reviewer to judge one
// submission. A reviewer holds at most one live assignment per submission;
// a reassignment creates a new row and never resurrects the old one.
//
// LiveKey is "<submission>:<wallet>" while the assignment is pending and
// NULL once terminal. Unique indexes skip NULLs, so the index admits at
// most one live row per (submission, reviewer) pair no matter how many
// transactions race the creation.
type Assignment struct {
	AssignmentID   string    `gorm:"primaryKey;column:assignment_id;size:36" json:"assignment_id"`
	SubmissionID   int       `gorm:"column:submission_id;index" json:"submission_id"`
	ReviewerWallet string    `gorm:"column:reviewer_wallet;size:64;index:idx_assignments_reviewer_status" json:"reviewer_wallet"`
	Status         string    `gorm:"column:status;default:pending;index:idx_assignments_reviewer_status;index:idx_assignments_status_expiry" json:"status"`
	LiveKey        *string   `gorm:"column:live_key;size:80;uniqueIndex" json:"-"`
	ExpiresAt      time.Time `gorm:"column:expires_at;index:idx_assignments_status_expiry" json:"expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for Assignment.
func (Assignment) TableName() string {
	return "assignments"
}

// BeforeCreate assigns a UUID primary key and the live-uniqueness key.
func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.AssignmentID == "" {
		a.AssignmentID = uuid.NewString()
	}
	if a.Status == AssignmentStatusPending && a.LiveKey == nil {
		key := LiveAssignmentKey(a.SubmissionID, a.ReviewerWallet)
		a.LiveKey = &key
	}
	return nil
}

// LiveAssignmentKey builds the uniqueness key for a live assignment.
func LiveAssignmentKey(submissionID int, reviewerWallet string) string {
	return fmt.Sprintf("%d:%s", submissionID, reviewerWallet)
}

// IsExpired reports whether the assignment's TTL has lapsed at the given time.
func (a *Assignment) IsExpired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
