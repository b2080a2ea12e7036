package scoring

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/domain"
)

// ReportStore is the persistence collaborator the consensus recompute needs
type ReportStore interface {
	GetReport(ctx context.Context, id uuid.UUID) (*domain.Report, error)
	GetVoteCounts(ctx context.Context, reportID uuid.UUID) (int, int, error)
	GetVerificationCount(ctx context.Context, reportID uuid.UUID) (int, error)
	UpdateConsensusScore(ctx context.Context, reportID uuid.UUID, score int) error
}

// ReputationStore is the persistence collaborator the trust recompute needs
type ReputationStore interface {
	GetUserReputation(ctx context.Context, userID string) (*domain.UserReputation, error)
	UpdateTrustScore(ctx context.Context, userID string, score int) error
}

// Service recomputes and persists consensus and trust scores. It holds no
// state of its own; every recompute reads the current signals from storage.
type Service struct {
	reports    ReportStore
	reputation ReputationStore
}

// NewService creates a scoring service
func NewService(reports ReportStore, reputation ReputationStore) *Service {
	return &Service{
		reports:    reports,
		reputation: reputation,
	}
}

// RecomputeConsensus recalculates a report's consensus score from its current
// vote, verification, AI, and confirmation signals and persists the result.
// Must be called after every signal mutation; calling it again with no
// intervening mutation yields the same score.
func (s *Service) RecomputeConsensus(ctx context.Context, reportID uuid.UUID) (int, error) {
	report, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return 0, err
	}

	upvotes, downvotes, err := s.reports.GetVoteCounts(ctx, reportID)
	if err != nil {
		return 0, fmt.Errorf("failed to load vote counts for report %s: %w", reportID, err)
	}

	verifications, err := s.reports.GetVerificationCount(ctx, reportID)
	if err != nil {
		return 0, fmt.Errorf("failed to load verification count for report %s: %w", reportID, err)
	}

	score := ComputeConsensus(ConsensusInputs{
		Upvotes:           upvotes,
		Downvotes:         downvotes,
		VerificationCount: verifications,
		AIValidationScore: report.AIValidationScore,
		Confirmed:         report.IsConfirmed(),
	})

	if err := s.reports.UpdateConsensusScore(ctx, reportID, score); err != nil {
		return 0, fmt.Errorf("failed to persist consensus score for report %s: %w", reportID, err)
	}
	return score, nil
}

// RecomputeTrust recalculates a user's trust score from their aggregated
// reputation counters and persists the result. Must be called after every
// counter increment; a stale trust score is a correctness bug.
func (s *Service) RecomputeTrust(ctx context.Context, userID string) (int, error) {
	rep, err := s.reputation.GetUserReputation(ctx, userID)
	if err != nil {
		return 0, err
	}

	score := ComputeTrust(*rep)
	if err := s.reputation.UpdateTrustScore(ctx, userID, score); err != nil {
		return 0, fmt.Errorf("failed to persist trust score for user %s: %w", userID, err)
	}
	return score, nil
}
