package services

import (
	"testing"
	"time"

	"review-quorum-api/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Submission{},
		&models.Reviewer{},
		&models.Assignment{},
		&models.Vote{},
		&models.Commission{},
		&models.AuditLogEntry{},
		&models.Notification{},
	)
	require.NoError(t, err, "Failed to migrate schema")

	return db
}

func testSettings() Settings {
	return Settings{
		QuorumSize:       3,
		AssignmentTTL:    24 * time.Hour,
		CommissionAmount: 10,
		CollusionWindow:  7 * 24 * time.Hour,
	}
}

func seedReviewer(t *testing.T, db *gorm.DB, wallet string) *models.Reviewer {
	t.Helper()
	reviewer := models.Reviewer{
		WalletAddress: wallet,
		Status:        models.ReviewerStatusActive,
		VotingWeight:  1,
	}
	require.NoError(t, db.Create(&reviewer).Error)
	return &reviewer
}

func seedSubmission(t *testing.T, db *gorm.DB, userID int) *models.Submission {
	t.Helper()
	submission := models.Submission{
		UserID:     userID,
		WeekNumber: 12,
		ProofURL:   "https://cdn.example.test/proof.jpg",
		Status:     models.SubmissionStatusPending,
	}
	require.NoError(t, db.Create(&submission).Error)
	return &submission
}

func seedAssignment(t *testing.T, db *gorm.DB, submissionID int, wallet string, ttl time.Duration) *models.Assignment {
	t.Helper()
	assignment := models.Assignment{
		SubmissionID:   submissionID,
		ReviewerWallet: wallet,
		Status:         models.AssignmentStatusPending,
		ExpiresAt:      time.Now().Add(ttl),
	}
	require.NoError(t, db.Create(&assignment).Error)
	return &assignment
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
