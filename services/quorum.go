package services

import "review-quorum-api/models"

// VerdictUndecided means neither tally has reached quorum yet.
const VerdictUndecided = "undecided"

// EvaluateQuorum tallies all votes for a submission and decides the verdict.
// Weights map reviewer wallets to their voting weight; missing or sub-1
// entries count as 1. Votes beyond the threshold are still valid — quorum is
// "first to reach Q", and because the evaluator runs inside every vote's
// transaction the first crossing always settles before a second tally could
// also cross.
func EvaluateQuorum(votes []models.Vote, weights map[string]int, quorum int) string {
	approve, reject := 0, 0
	for _, v := range votes {
		w := weights[v.ReviewerWallet]
		if w < 1 {
			w = 1
		}
		switch v.Verdict {
		case models.VoteVerdictApprove:
			approve += w
		case models.VoteVerdictReject:
			reject += w
		}
	}

	if approve >= quorum {
		return models.SubmissionStatusApproved
	}
	if reject >= quorum {
		return models.SubmissionStatusRejected
	}
	return VerdictUndecided
}
