package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied at startup. All statements are idempotent so the service
// can be restarted against an existing database.
const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id UUID PRIMARY KEY,
	reporter_user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	report_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	upvotes INT NOT NULL DEFAULT 0,
	downvotes INT NOT NULL DEFAULT 0,
	verification_count INT NOT NULL DEFAULT 0,
	ai_validation_score INT,
	confirmed_by TEXT,
	flag_type TEXT,
	consensus_score INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS report_votes (
	report_id UUID NOT NULL,
	voter_user_id TEXT NOT NULL,
	upvote BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (report_id, voter_user_id)
);

CREATE TABLE IF NOT EXISTS report_verifications (
	report_id UUID NOT NULL,
	verifier_user_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (report_id, verifier_user_id)
);

CREATE TABLE IF NOT EXISTS user_reputation (
	user_id TEXT PRIMARY KEY,
	total_reports INT NOT NULL DEFAULT 0,
	verified_reports INT NOT NULL DEFAULT 0,
	false_reports INT NOT NULL DEFAULT 0,
	verifications_given INT NOT NULL DEFAULT 0,
	upvotes_received INT NOT NULL DEFAULT 0,
	downvotes_received INT NOT NULL DEFAULT 0,
	resources_provided INT NOT NULL DEFAULT 0,
	trust_score INT NOT NULL DEFAULT 50,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS aid_offers (
	id UUID PRIMARY KEY,
	supplier_user_id TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	quantity INT NOT NULL,
	status TEXT NOT NULL,
	matched_request_id UUID,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS resource_requests (
	id UUID PRIMARY KEY,
	requester_user_id TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	quantity INT NOT NULL,
	urgency TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS match_suggestions (
	id UUID PRIMARY KEY,
	request_id UUID NOT NULL,
	offer_id UUID NOT NULL,
	score INT NOT NULL,
	reasoning TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_prioritized ON reports (consensus_score DESC) WHERE flag_type IS NULL;
CREATE INDEX IF NOT EXISTS idx_offers_status ON aid_offers (status);
CREATE INDEX IF NOT EXISTS idx_requests_status ON resource_requests (status);
`

// EnsureSchema creates all tables used by the coordination service
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
