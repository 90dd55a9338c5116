package services

import (
	"os"
	"strconv"
	"time"
)

// Settings carries the review-workflow knobs. Values come from the
// environment in production; tests construct them directly.
type Settings struct {
	// QuorumSize is the number of matching vote points needed for a verdict.
	QuorumSize int
	// AssignmentTTL is how long a reviewer has to act on an assignment.
	AssignmentTTL time.Duration
	// CommissionAmount is the fixed unit paid per voting reviewer at settlement.
	CommissionAmount int
	// CollusionWindow is the trailing period during which a reviewer who
	// voted on a submitter's work is excluded from that submitter's other
	// submissions.
	CollusionWindow time.Duration
}

// DefaultSettings mirrors the reference behavior: quorum of 3, 24h TTL,
// 7-day anti-collusion window.
func DefaultSettings() Settings {
	return Settings{
		QuorumSize:       3,
		AssignmentTTL:    24 * time.Hour,
		CommissionAmount: 10,
		CollusionWindow:  7 * 24 * time.Hour,
	}
}

// LoadSettings reads overrides from the environment, falling back to the
// defaults for anything unset or malformed.
func LoadSettings() Settings {
	s := DefaultSettings()
	if v := envInt("QUORUM_SIZE"); v > 0 {
		s.QuorumSize = v
	}
	if v := envInt("ASSIGNMENT_TTL_HOURS"); v > 0 {
		s.AssignmentTTL = time.Duration(v) * time.Hour
	}
	if v := envInt("COMMISSION_AMOUNT"); v > 0 {
		s.CommissionAmount = v
	}
	if v := envInt("COLLUSION_WINDOW_DAYS"); v > 0 {
		s.CollusionWindow = time.Duration(v) * 24 * time.Hour
	}
	return s
}

func envInt(key string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
