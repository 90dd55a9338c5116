package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"review-quorum-api/config"
	"review-quorum-api/models"

	"gorm.io/gorm"
)

// SweepSummary describes one reaper pass, retained for the ops monitor.
type SweepSummary struct {
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	ExpiredAssignments int       `json:"expired_assignments"`
	ReapedSubmissions  int       `json:"reaped_submissions"`
	NewAssignments     int       `json:"new_assignments"`
	Failures           int       `json:"failures"`
}

var (
	lastSweepMu sync.RWMutex
	lastSweep   *SweepSummary
)

// ReaperLockName returns the named lock every sweep caller shares, so a
// manual admin sweep and the scheduled loop can never overlap. Defaults
// when REAPER_LOCK_NAME is unset.
func ReaperLockName() string {
	if name := strings.TrimSpace(os.Getenv("REAPER_LOCK_NAME")); name != "" {
		return name
	}
	return "assignment_reaper"
}

// LastSweepSummary returns the most recent sweep result, or nil before the
// first pass of this process.
func LastSweepSummary() *SweepSummary {
	lastSweepMu.RLock()
	defer lastSweepMu.RUnlock()
	if lastSweep == nil {
		return nil
	}
	copied := *lastSweep
	return &copied
}

func recordSweep(summary *SweepSummary) {
	lastSweepMu.Lock()
	lastSweep = summary
	lastSweepMu.Unlock()
}

// ReaperService retires expired pending assignments and backfills each
// affected submission with freshly selected reviewers. Sweeps are safe to
// overlap across instances: expiry is idempotent, creation is guarded by
// the no-second-live-assignment rule, and an optional MySQL named lock
// keeps concurrent instances from duplicating work in the first place.
type ReaperService struct {
	db       *gorm.DB
	settings Settings
	audit    *AuditService
}

func NewReaperService(db *gorm.DB, settings Settings) *ReaperService {
	if db == nil {
		db = config.DB
	}
	return &ReaperService{
		db:       db,
		settings: settings,
		audit:    NewAuditService(db),
	}
}

// Sweep runs one reaper pass. lockName may be empty to skip cross-instance
// locking (tests, single-instance deployments). Each submission is
// processed in its own transaction so one failure never aborts the rest.
func (s *ReaperService) Sweep(ctx context.Context, lockName string) (*SweepSummary, error) {
	release, err := s.acquireLock(ctx, lockName)
	if err != nil {
		return nil, err
	}
	if release != nil {
		defer func() {
			if relErr := release(); relErr != nil {
				log.Printf("failed to release reaper lock: %v", relErr)
			}
		}()
	}

	now := time.Now()
	summary := &SweepSummary{StartedAt: now}

	var expired []models.Assignment
	err = s.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.AssignmentStatusPending, now).
		Order("submission_id ASC, created_at ASC").
		Find(&expired).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan expired assignments: %w", err)
	}

	bySubmission := make(map[int][]models.Assignment)
	order := make([]int, 0)
	for _, a := range expired {
		if _, seen := bySubmission[a.SubmissionID]; !seen {
			order = append(order, a.SubmissionID)
		}
		bySubmission[a.SubmissionID] = append(bySubmission[a.SubmissionID], a)
	}

	for _, submissionID := range order {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = time.Now()
			recordSweep(summary)
			return summary, err
		}
		batch := bySubmission[submissionID]
		if err := s.reapSubmission(ctx, submissionID, batch, now, summary); err != nil {
			summary.Failures++
			log.Printf("reaper: submission %d failed: %v", submissionID, err)
		}
	}

	// Bootstrap pass: pending submissions with no live assignments at all
	// (fresh intake, or every panel member timed out between sweeps).
	if err := s.bootstrapIdleSubmissions(ctx, now, summary); err != nil {
		summary.Failures++
		log.Printf("reaper: bootstrap pass failed: %v", err)
	}

	summary.FinishedAt = time.Now()
	recordSweep(summary)
	return summary, nil
}

// reapSubmission expires one submission's lapsed assignments and tops it up,
// all inside one transaction, then writes a single audit entry for the
// submission once the transaction commits.
func (s *ReaperService) reapSubmission(ctx context.Context, submissionID int, batch []models.Assignment, now time.Time, summary *SweepSummary) error {
	var (
		expiredWallets []string
		newWallets     []string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range batch {
			changed, err := expireAssignmentTx(tx, a.AssignmentID, now)
			if err != nil {
				return err
			}
			if changed {
				expiredWallets = append(expiredWallets, a.ReviewerWallet)
			}
		}

		wallets, err := s.topUpTx(tx, submissionID, now)
		if err != nil {
			return err
		}
		newWallets = wallets
		return nil
	})
	if err != nil {
		return err
	}

	summary.ExpiredAssignments += len(expiredWallets)
	summary.NewAssignments += len(newWallets)
	if len(expiredWallets) > 0 || len(newWallets) > 0 {
		summary.ReapedSubmissions++
		after := fmt.Sprintf("expired=[%s] assigned=[%s]",
			strings.Join(expiredWallets, ","), strings.Join(newWallets, ","))
		s.audit.Record(ctx, models.AuditLogEntry{
			Action:     "assignments_reaped",
			EntityType: "submission",
			EntityID:   fmt.Sprintf("%d", submissionID),
			AfterState: &after,
		})
	}
	return nil
}

// topUpTx creates replacement assignments until the submission's
// outstanding need is covered. Need follows the reference formula
// quorum - totalVotes, minus assignments that are still live so the reaper
// never stacks extra work on a submission with enough outstanding panels.
func (s *ReaperService) topUpTx(tx *gorm.DB, submissionID int, now time.Time) ([]string, error) {
	var submission models.Submission
	if err := tx.Where("submission_id = ?", submissionID).First(&submission).Error; err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	if submission.IsClosed() {
		return nil, nil
	}

	var votes int64
	if err := tx.Model(&models.Vote{}).Where("submission_id = ?", submissionID).Count(&votes).Error; err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}
	var live int64
	err := tx.Model(&models.Assignment{}).
		Where("submission_id = ? AND status = ?", submissionID, models.AssignmentStatusPending).
		Count(&live).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count live assignments: %w", err)
	}

	need := s.settings.QuorumSize - int(votes) - int(live)
	if need <= 0 {
		return nil, nil
	}

	wallets, err := selectReviewersTx(tx, submissionID, need, s.settings.CollusionWindow, now)
	if err != nil {
		return nil, err
	}

	created := make([]string, 0, len(wallets))
	for _, wallet := range wallets {
		if _, err := createAssignmentTx(tx, submissionID, wallet, s.settings.AssignmentTTL, now); err != nil {
			// A racing sweep may have assigned this reviewer already.
			if err == ErrDuplicateAssignment {
				continue
			}
			return nil, err
		}
		created = append(created, wallet)
	}
	return created, nil
}

// TopUp forces the need computation for one submission outside the sweep.
// Used for bootstrapping fresh submissions from the admin surface.
func (s *ReaperService) TopUp(ctx context.Context, submissionID int) ([]string, error) {
	now := time.Now()
	var wallets []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.topUpTx(tx, submissionID, now)
		if err != nil {
			return err
		}
		wallets = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(wallets) > 0 {
		after := fmt.Sprintf("assigned=[%s]", strings.Join(wallets, ","))
		s.audit.Record(ctx, models.AuditLogEntry{
			Action:     "assignments_created",
			EntityType: "submission",
			EntityID:   fmt.Sprintf("%d", submissionID),
			AfterState: &after,
		})
	}
	return wallets, nil
}

func (s *ReaperService) bootstrapIdleSubmissions(ctx context.Context, now time.Time, summary *SweepSummary) error {
	var idle []int
	err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Select("submissions.submission_id").
		Where("submissions.status = ?", models.SubmissionStatusPending).
		Where("NOT EXISTS (SELECT 1 FROM assignments WHERE assignments.submission_id = submissions.submission_id AND assignments.status = ?)",
			models.AssignmentStatusPending).
		Pluck("submissions.submission_id", &idle).Error
	if err != nil {
		return fmt.Errorf("failed to scan idle submissions: %w", err)
	}

	for _, submissionID := range idle {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.reapSubmission(ctx, submissionID, nil, now, summary); err != nil {
			summary.Failures++
			log.Printf("reaper: bootstrap of submission %d failed: %v", submissionID, err)
		}
	}
	return nil
}

// acquireLock takes a MySQL named lock without waiting. Returns a release
// func, or ErrReaperAlreadyRunning when another holder exists. An empty
// lock name skips locking entirely.
func (s *ReaperService) acquireLock(ctx context.Context, lockName string) (func() error, error) {
	if strings.TrimSpace(lockName) == "" {
		return nil, nil
	}

	var ok int
	if err := s.db.WithContext(ctx).Raw("SELECT GET_LOCK(?, 0)", lockName).Scan(&ok).Error; err != nil {
		return nil, err
	}
	if ok != 1 {
		return nil, ErrReaperAlreadyRunning
	}

	return func() error {
		var released int
		if err := s.db.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&released).Error; err != nil {
			return err
		}
		if released != 1 {
			return fmt.Errorf("lock %q was not held", lockName)
		}
		return nil
	}, nil
}
