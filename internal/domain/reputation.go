package domain

import "time"

// UserReputation aggregates the per-user counters the trust score is derived
// from. One row per user, created lazily on the first reputation-affecting
// event.
type UserReputation struct {
	UserID             string    `json:"user_id"`
	TotalReports       int       `json:"total_reports"`
	VerifiedReports    int       `json:"verified_reports"`
	FalseReports       int       `json:"false_reports"`
	VerificationsGiven int       `json:"verifications_given"`
	UpvotesReceived    int       `json:"upvotes_received"`
	DownvotesReceived  int       `json:"downvotes_received"`
	ResourcesProvided  int       `json:"resources_provided"`
	TrustScore         int       `json:"trust_score"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ReputationCounter names a single UserReputation counter for increments
type ReputationCounter string

const (
	CounterTotalReports       ReputationCounter = "total_reports"
	CounterVerifiedReports    ReputationCounter = "verified_reports"
	CounterFalseReports       ReputationCounter = "false_reports"
	CounterVerificationsGiven ReputationCounter = "verifications_given"
	CounterUpvotesReceived    ReputationCounter = "upvotes_received"
	CounterDownvotesReceived  ReputationCounter = "downvotes_received"
	CounterResourcesProvided  ReputationCounter = "resources_provided"
)

// ValidReputationCounters lists the counters that may be incremented
var ValidReputationCounters = []ReputationCounter{
	CounterTotalReports,
	CounterVerifiedReports,
	CounterFalseReports,
	CounterVerificationsGiven,
	CounterUpvotesReceived,
	CounterDownvotesReceived,
	CounterResourcesProvided,
}

// IsValidReputationCounter checks if the counter name is valid
func IsValidReputationCounter(c ReputationCounter) bool {
	for _, v := range ValidReputationCounters {
		if v == c {
			return true
		}
	}
	return false
}

// NewUserReputation creates a reputation record with the neutral baseline
// trust score of 50.
func NewUserReputation(userID string) *UserReputation {
	return &UserReputation{
		UserID:     userID,
		TrustScore: 50,
		UpdatedAt:  time.Now(),
	}
}
