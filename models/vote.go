package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote verdicts.
const (
	VoteVerdictApprove = "approve"
	VoteVerdictReject  = "reject"
)

// Vote records one reviewer's verdict on a submission. The ledger is
// append-only; the unique index on assignment_id enforces at most one vote
// per assignment at the storage layer.
type Vote struct {
	VoteID         string    `gorm:"primaryKey;column:vote_id;size:36" json:"vote_id"`
	SubmissionID   int       `gorm:"column:submission_id;index" json:"submission_id"`
	ReviewerWallet string    `gorm:"column:reviewer_wallet;size:64;index" json:"reviewer_wallet"`
	AssignmentID   string    `gorm:"column:assignment_id;size:36;uniqueIndex" json:"assignment_id"`
	Verdict        string    `gorm:"column:verdict" json:"verdict"`
	CastAt         time.Time `gorm:"column:cast_at;index" json:"cast_at"`
}

// TableName specifies the table name for Vote.
func (Vote) TableName() string {
	return "votes"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.VoteID == "" {
		v.VoteID = uuid.NewString()
	}
	return nil
}
