package models

import "time"

// Commission is a payout entry minted during settlement, one per reviewer
// who voted on the settled submission. The composite unique index makes
// duplicate minting impossible even under settlement re-entry; rows are
// consumed by the payout ledger downstream.
type Commission struct {
	CommissionID   int       `gorm:"primaryKey;autoIncrement;column:commission_id" json:"commission_id"`
	ReviewerWallet string    `gorm:"column:reviewer_wallet;size:64;uniqueIndex:idx_commissions_reviewer_submission" json:"reviewer_wallet"`
	SubmissionID   int       `gorm:"column:submission_id;uniqueIndex:idx_commissions_reviewer_submission" json:"submission_id"`
	Amount         int       `gorm:"column:amount" json:"amount"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table name for Commission.
func (Commission) TableName() string {
	return "commissions"
}
