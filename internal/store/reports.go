package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/domain"
)

// ReportRepo persists reports and their vote/verification signals
type ReportRepo struct {
	db *sql.DB
}

// NewReportRepo creates a report repository
func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// CreateReport inserts a new report
func (r *ReportRepo) CreateReport(ctx context.Context, report *domain.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, reporter_user_id, title, description, report_type, severity,
		                      upvotes, downvotes, verification_count, ai_validation_score,
		                      confirmed_by, flag_type, consensus_score, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		report.ID, report.ReporterUserID, report.Title, report.Description, report.Type,
		report.Severity, report.Upvotes, report.Downvotes, report.VerificationCount,
		report.AIValidationScore, report.ConfirmedBy, report.FlagType, report.ConsensusScore,
		report.CreatedAt, report.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// GetReport returns a report by id
func (r *ReportRepo) GetReport(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, reporter_user_id, title, description, report_type, severity,
		        upvotes, downvotes, verification_count, ai_validation_score,
		        confirmed_by, flag_type, consensus_score, created_at, updated_at
		 FROM reports WHERE id = $1`, id)

	var report domain.Report
	var aiScore sql.NullInt64
	var confirmedBy, flagType sql.NullString
	err := row.Scan(&report.ID, &report.ReporterUserID, &report.Title, &report.Description,
		&report.Type, &report.Severity, &report.Upvotes, &report.Downvotes,
		&report.VerificationCount, &aiScore, &confirmedBy, &flagType,
		&report.ConsensusScore, &report.CreatedAt, &report.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	if aiScore.Valid {
		v := int(aiScore.Int64)
		report.AIValidationScore = &v
	}
	if confirmedBy.Valid {
		report.ConfirmedBy = &confirmedBy.String
	}
	if flagType.Valid {
		f := domain.FlagType(flagType.String)
		report.FlagType = &f
	}
	return &report, nil
}

// AddVote records a vote. A user voting again on the same report overwrites
// their previous vote. The denormalized counters on the report row are
// recounted from the vote table rather than patched incrementally.
func (r *ReportRepo) AddVote(ctx context.Context, reportID uuid.UUID, voterUserID string, upvote bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO report_votes (report_id, voter_user_id, upvote, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (report_id, voter_user_id) DO UPDATE SET upvote = $3`,
		reportID, voterUserID, upvote, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record vote: %w", err)
	}
	return r.syncVoteCounters(ctx, reportID)
}

func (r *ReportRepo) syncVoteCounters(ctx context.Context, reportID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reports SET
		   upvotes   = (SELECT COUNT(*) FROM report_votes WHERE report_id = $1 AND upvote),
		   downvotes = (SELECT COUNT(*) FROM report_votes WHERE report_id = $1 AND NOT upvote),
		   updated_at = $2
		 WHERE id = $1`, reportID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to sync vote counters: %w", err)
	}
	return nil
}

// GetVoteCounts returns the current upvote/downvote totals for a report
func (r *ReportRepo) GetVoteCounts(ctx context.Context, reportID uuid.UUID) (int, int, error) {
	var upvotes, downvotes int
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE upvote),
		   COUNT(*) FILTER (WHERE NOT upvote)
		 FROM report_votes WHERE report_id = $1`, reportID).Scan(&upvotes, &downvotes)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return upvotes, downvotes, nil
}

// AddVerification records a responder verification and returns the report's
// verification count after the insert. Each responder counts once per report.
// Callers deciding on "first verification" side effects must use the returned
// count, not a count read before the insert.
func (r *ReportRepo) AddVerification(ctx context.Context, reportID uuid.UUID, verifierUserID string) (int, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO report_verifications (report_id, verifier_user_id, created_at)
		 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		reportID, verifierUserID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to record verification: %w", err)
	}

	var count int
	err = r.db.QueryRowContext(ctx,
		`UPDATE reports SET
		   verification_count = (SELECT COUNT(*) FROM report_verifications WHERE report_id = $1),
		   updated_at = $2
		 WHERE id = $1
		 RETURNING verification_count`, reportID, time.Now()).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("report %s: %w", reportID, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to sync verification count: %w", err)
	}
	return count, nil
}

// GetVerificationCount returns the number of verifications for a report
func (r *ReportRepo) GetVerificationCount(ctx context.Context, reportID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM report_verifications WHERE report_id = $1`, reportID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count verifications: %w", err)
	}
	return count, nil
}

// SetConfirmedBy sets or clears the official confirmation on a report
func (r *ReportRepo) SetConfirmedBy(ctx context.Context, reportID uuid.UUID, responderID *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET confirmed_by = $2, updated_at = $3 WHERE id = $1`,
		reportID, responderID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update confirmation: %w", err)
	}
	return checkRowAffected(res, "report", reportID.String())
}

// SetFlag sets or clears the moderation flag on a report
func (r *ReportRepo) SetFlag(ctx context.Context, reportID uuid.UUID, flag *domain.FlagType) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET flag_type = $2, updated_at = $3 WHERE id = $1`,
		reportID, flag, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update flag: %w", err)
	}
	return checkRowAffected(res, "report", reportID.String())
}

// SetAIValidationScore stores the heuristic suspicion sub-score produced by
// the external image/text analysis pipeline.
func (r *ReportRepo) SetAIValidationScore(ctx context.Context, reportID uuid.UUID, score int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET ai_validation_score = $2, updated_at = $3 WHERE id = $1`,
		reportID, score, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update AI validation score: %w", err)
	}
	return checkRowAffected(res, "report", reportID.String())
}

// UpdateConsensusScore persists a freshly recomputed consensus score
func (r *ReportRepo) UpdateConsensusScore(ctx context.Context, reportID uuid.UUID, score int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET consensus_score = $2, updated_at = $3 WHERE id = $1`,
		reportID, score, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update consensus score: %w", err)
	}
	return checkRowAffected(res, "report", reportID.String())
}

// ListPrioritized returns unflagged reports ordered by consensus score.
// Flagged reports are never included.
func (r *ReportRepo) ListPrioritized(ctx context.Context, limit int) ([]domain.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, reporter_user_id, title, description, report_type, severity,
		        upvotes, downvotes, verification_count, ai_validation_score,
		        confirmed_by, flag_type, consensus_score, created_at, updated_at
		 FROM reports
		 WHERE flag_type IS NULL
		 ORDER BY consensus_score DESC, created_at ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query prioritized reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		var report domain.Report
		var aiScore sql.NullInt64
		var confirmedBy, flagType sql.NullString
		if err := rows.Scan(&report.ID, &report.ReporterUserID, &report.Title, &report.Description,
			&report.Type, &report.Severity, &report.Upvotes, &report.Downvotes,
			&report.VerificationCount, &aiScore, &confirmedBy, &flagType,
			&report.ConsensusScore, &report.CreatedAt, &report.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		if aiScore.Valid {
			v := int(aiScore.Int64)
			report.AIValidationScore = &v
		}
		if confirmedBy.Valid {
			report.ConfirmedBy = &confirmedBy.String
		}
		if flagType.Valid {
			f := domain.FlagType(flagType.String)
			report.FlagType = &f
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func checkRowAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}
	return nil
}
