package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/domain"
)

// ReputationRepo persists per-user reputation counters and trust scores
type ReputationRepo struct {
	db *sql.DB
}

// NewReputationRepo creates a reputation repository
func NewReputationRepo(db *sql.DB) *ReputationRepo {
	return &ReputationRepo{db: db}
}

// GetUserReputation returns the reputation record for a user
func (r *ReputationRepo) GetUserReputation(ctx context.Context, userID string) (*domain.UserReputation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, total_reports, verified_reports, false_reports, verifications_given,
		        upvotes_received, downvotes_received, resources_provided, trust_score, updated_at
		 FROM user_reputation WHERE user_id = $1`, userID)

	var rep domain.UserReputation
	err := row.Scan(&rep.UserID, &rep.TotalReports, &rep.VerifiedReports, &rep.FalseReports,
		&rep.VerificationsGiven, &rep.UpvotesReceived, &rep.DownvotesReceived,
		&rep.ResourcesProvided, &rep.TrustScore, &rep.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reputation for user %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reputation: %w", err)
	}
	return &rep, nil
}

// counterColumns whitelists the counter names that IncrementCounter may touch.
// Column names are never taken from request input directly.
var counterColumns = map[domain.ReputationCounter]string{
	domain.CounterTotalReports:       "total_reports",
	domain.CounterVerifiedReports:    "verified_reports",
	domain.CounterFalseReports:       "false_reports",
	domain.CounterVerificationsGiven: "verifications_given",
	domain.CounterUpvotesReceived:    "upvotes_received",
	domain.CounterDownvotesReceived:  "downvotes_received",
	domain.CounterResourcesProvided:  "resources_provided",
}

// IncrementCounter adds delta to one reputation counter, creating the record
// lazily on the first reputation-affecting event. Counters never go below zero.
func (r *ReputationRepo) IncrementCounter(ctx context.Context, userID string, counter domain.ReputationCounter, delta int) error {
	column, ok := counterColumns[counter]
	if !ok {
		return fmt.Errorf("unknown reputation counter %q: %w", counter, domain.ErrInvalidState)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_reputation (user_id, updated_at) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to ensure reputation record: %w", err)
	}

	query := fmt.Sprintf(
		`UPDATE user_reputation SET %s = GREATEST(0, %s + $2), updated_at = $3 WHERE user_id = $1`,
		column, column)
	if _, err := r.db.ExecContext(ctx, query, userID, delta, time.Now()); err != nil {
		return fmt.Errorf("failed to increment %s: %w", column, err)
	}
	return nil
}

// UpdateTrustScore persists a freshly recomputed trust score
func (r *ReputationRepo) UpdateTrustScore(ctx context.Context, userID string, score int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_reputation SET trust_score = $2, updated_at = $3 WHERE user_id = $1`,
		userID, score, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update trust score: %w", err)
	}
	return checkRowAffected(res, "reputation", userID)
}
