package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"review-quorum-api/config"
	"review-quorum-api/models"

	"gorm.io/gorm"
)

// NotificationService informs submitters of verdicts. Like the audit sink
// it is fire-and-forget: delivery failure never affects settlement.
type NotificationService struct {
	db *gorm.DB

	// ResolveEmail maps a user id to an email address. It belongs to the
	// account system, which this service only consumes; when nil (or when
	// it returns an error) only the in-app notification row is written.
	ResolveEmail func(userID int) (string, error)
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	if db == nil {
		db = config.DB
	}
	return &NotificationService{db: db}
}

// SubmissionDecided writes an in-app notification for the submitting user
// and dispatches an email in the background when an address can be resolved.
func (s *NotificationService) SubmissionDecided(ctx context.Context, userID, submissionID int, verdict string) {
	title := "Submission approved"
	kind := "success"
	if verdict == models.SubmissionStatusRejected {
		title = "Submission rejected"
		kind = "warning"
	}
	message := fmt.Sprintf("Your week submission #%d was %s by the review panel.", submissionID, verdict)

	notification := models.Notification{
		UserID:              userID,
		Title:               title,
		Message:             message,
		Type:                kind,
		RelatedSubmissionID: &submissionID,
		CreatedAt:           time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		log.Printf("notification write failed (user=%d submission=%d): %v", userID, submissionID, err)
	}

	if s.ResolveEmail == nil {
		return
	}
	go func() {
		email, err := s.ResolveEmail(userID)
		if err != nil || email == "" {
			return
		}
		html := fmt.Sprintf("<p>%s</p>", message)
		if err := config.SendMail([]string{email}, title, html); err != nil {
			log.Printf("notification email failed (user=%d): %v", userID, err)
		}
	}()
}
