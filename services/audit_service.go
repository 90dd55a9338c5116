package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"review-quorum-api/config"
	"review-quorum-api/models"

	"gorm.io/gorm"
)

// AuditService is the best-effort forensic sink. Record is always called
// after the triggering transaction commits and never returns an error: a
// lost audit entry is logged locally and the core operation stands.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	if db == nil {
		db = config.DB
	}
	return &AuditService{db: db}
}

// Record appends one audit entry, swallowing any failure.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLogEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("audit write failed (action=%s entity=%s/%s): %v",
			entry.Action, entry.EntityType, entry.EntityID, err)
	}
}

// List returns audit entries newest first, optionally filtered by entity
// type and id, capped at limit rows.
func (s *AuditService) List(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := s.db.WithContext(ctx).Model(&models.AuditLogEntry{})
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}

	var entries []models.AuditLogEntry
	if err := query.Order("log_id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// auditSnapshot serializes a value for a before/after column. Marshal
// failures degrade to nil rather than blocking the caller.
func auditSnapshot(v interface{}) *string {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(raw)
	return &s
}
