package models

import "time"

// AuditLogEntry is a best-effort forensic record of a state transition.
// Writes happen after the core transaction commits and a failed write never
// rolls back the transition that triggered it.
type AuditLogEntry struct {
	LogID       int       `gorm:"primaryKey;autoIncrement;column:log_id" json:"log_id"`
	Action      string    `gorm:"column:action;index" json:"action"`
	EntityType  string    `gorm:"column:entity_type;index:idx_audit_entity" json:"entity_type"`
	EntityID    string    `gorm:"column:entity_id;index:idx_audit_entity" json:"entity_id"`
	ActorWallet *string   `gorm:"column:actor_wallet;size:64" json:"actor_wallet,omitempty"`
	BeforeState *string   `gorm:"column:before_state;type:text" json:"before_state,omitempty"`
	AfterState  *string   `gorm:"column:after_state;type:text" json:"after_state,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table name for AuditLogEntry.
func (AuditLogEntry) TableName() string {
	return "audit_logs"
}
