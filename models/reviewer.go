package models

import "time"

// Reviewer statuses.
const (
	ReviewerStatusActive    = "active"
	ReviewerStatusSuspended = "suspended"
)

// Reviewer is a wallet-holding panel member. The wallet address doubles as
// the reviewer id. Only active reviewers are eligible for new assignments.
type Reviewer struct {
	WalletAddress string    `gorm:"primaryKey;column:wallet_address;size:64" json:"wallet_address"`
	Status        string    `gorm:"column:status;default:active;index" json:"status"`
	VotingWeight  int       `gorm:"column:voting_weight;default:1" json:"voting_weight"`
	StrikeCount   int       `gorm:"column:strike_count;default:0" json:"strike_count"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for Reviewer.
func (Reviewer) TableName() string {
	return "reviewers"
}

// Weight returns the reviewer's effective voting weight, never below 1.
func (r *Reviewer) Weight() int {
	if r.VotingWeight < 1 {
		return 1
	}
	return r.VotingWeight
}
