package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/domain"
)

// AllocationRepo persists aid offers, resource requests, and the match
// suggestions the batch allocation run produces.
type AllocationRepo struct {
	db *sql.DB
}

// NewAllocationRepo creates an allocation repository
func NewAllocationRepo(db *sql.DB) *AllocationRepo {
	return &AllocationRepo{db: db}
}

// CreateOffer inserts a new aid offer
func (r *AllocationRepo) CreateOffer(ctx context.Context, offer *domain.AidOffer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO aid_offers (id, supplier_user_id, resource_type, quantity, status,
		                         matched_request_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		offer.ID, offer.SupplierUserID, offer.ResourceType, offer.Quantity, offer.Status,
		offer.MatchedRequestID, offer.CreatedAt, offer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert offer: %w", err)
	}
	return nil
}

// CreateRequest inserts a new resource request
func (r *AllocationRepo) CreateRequest(ctx context.Context, request *domain.ResourceRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO resource_requests (id, requester_user_id, resource_type, quantity,
		                                urgency, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		request.ID, request.RequesterUserID, request.ResourceType, request.Quantity,
		request.Urgency, request.Status, request.CreatedAt, request.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

// GetOffer returns an offer by id
func (r *AllocationRepo) GetOffer(ctx context.Context, id uuid.UUID) (*domain.AidOffer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, supplier_user_id, resource_type, quantity, status, matched_request_id,
		        created_at, updated_at
		 FROM aid_offers WHERE id = $1`, id)
	offer, err := scanOffer(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("offer %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query offer: %w", err)
	}
	return offer, nil
}

// GetRequest returns a request by id
func (r *AllocationRepo) GetRequest(ctx context.Context, id uuid.UUID) (*domain.ResourceRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, requester_user_id, resource_type, quantity, urgency, status,
		        created_at, updated_at
		 FROM resource_requests WHERE id = $1`, id)

	var request domain.ResourceRequest
	err := row.Scan(&request.ID, &request.RequesterUserID, &request.ResourceType,
		&request.Quantity, &request.Urgency, &request.Status, &request.CreatedAt, &request.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("request %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query request: %w", err)
	}
	return &request, nil
}

// GetAvailableOffers returns offers in the available state, oldest first
func (r *AllocationRepo) GetAvailableOffers(ctx context.Context) ([]domain.AidOffer, error) {
	return r.queryOffers(ctx,
		`SELECT id, supplier_user_id, resource_type, quantity, status, matched_request_id,
		        created_at, updated_at
		 FROM aid_offers WHERE status = $1 ORDER BY created_at ASC, id ASC`,
		domain.OfferAvailable)
}

// GetAllOffers returns every offer regardless of status, oldest first
func (r *AllocationRepo) GetAllOffers(ctx context.Context) ([]domain.AidOffer, error) {
	return r.queryOffers(ctx,
		`SELECT id, supplier_user_id, resource_type, quantity, status, matched_request_id,
		        created_at, updated_at
		 FROM aid_offers ORDER BY created_at ASC, id ASC`)
}

func (r *AllocationRepo) queryOffers(ctx context.Context, query string, args ...interface{}) ([]domain.AidOffer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer rows.Close()

	var offers []domain.AidOffer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer row: %w", err)
		}
		offers = append(offers, *offer)
	}
	return offers, rows.Err()
}

// GetPendingRequests returns requests in the pending state, oldest first
func (r *AllocationRepo) GetPendingRequests(ctx context.Context) ([]domain.ResourceRequest, error) {
	return r.queryRequests(ctx,
		`SELECT id, requester_user_id, resource_type, quantity, urgency, status,
		        created_at, updated_at
		 FROM resource_requests WHERE status = $1 ORDER BY created_at ASC, id ASC`,
		domain.RequestPending)
}

// GetAllRequests returns every request regardless of status, oldest first
func (r *AllocationRepo) GetAllRequests(ctx context.Context) ([]domain.ResourceRequest, error) {
	return r.queryRequests(ctx,
		`SELECT id, requester_user_id, resource_type, quantity, urgency, status,
		        created_at, updated_at
		 FROM resource_requests ORDER BY created_at ASC, id ASC`)
}

func (r *AllocationRepo) queryRequests(ctx context.Context, query string, args ...interface{}) ([]domain.ResourceRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.ResourceRequest
	for rows.Next() {
		var request domain.ResourceRequest
		if err := rows.Scan(&request.ID, &request.RequesterUserID, &request.ResourceType,
			&request.Quantity, &request.Urgency, &request.Status,
			&request.CreatedAt, &request.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan request row: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

// UpdateOfferStatus moves an offer to a new status. The matched request
// reference only survives in the committed and delivered states.
func (r *AllocationRepo) UpdateOfferStatus(ctx context.Context, id uuid.UUID, status domain.OfferStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE aid_offers SET status = $2,
		   matched_request_id = CASE WHEN $2 IN ('committed', 'delivered') THEN matched_request_id ELSE NULL END,
		   updated_at = $3
		 WHERE id = $1`, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update offer status: %w", err)
	}
	return checkRowAffected(res, "offer", id.String())
}

// MatchOfferToRequest commits an offer to a request in a single statement
func (r *AllocationRepo) MatchOfferToRequest(ctx context.Context, offerID, requestID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE aid_offers SET status = $2, matched_request_id = $3, updated_at = $4
		 WHERE id = $1`, offerID, domain.OfferCommitted, requestID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to match offer to request: %w", err)
	}
	return checkRowAffected(res, "offer", offerID.String())
}

// UpdateRequestStatus moves a request to a new status
func (r *AllocationRepo) UpdateRequestStatus(ctx context.Context, id uuid.UUID, status domain.RequestStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE resource_requests SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	return checkRowAffected(res, "request", id.String())
}

// CreateMatchSuggestion records one pairing proposed by a batch run
func (r *AllocationRepo) CreateMatchSuggestion(ctx context.Context, s *domain.MatchSuggestion) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_suggestions (id, request_id, offer_id, score, reasoning, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.RequestID, s.OfferID, s.Score, s.Reasoning, s.Status, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match suggestion: %w", err)
	}
	return nil
}

// ListSuggestionsForRequest returns the audit trail for one request
func (r *AllocationRepo) ListSuggestionsForRequest(ctx context.Context, requestID uuid.UUID) ([]domain.MatchSuggestion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, request_id, offer_id, score, reasoning, status, created_at
		 FROM match_suggestions WHERE request_id = $1 ORDER BY created_at DESC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []domain.MatchSuggestion
	for rows.Next() {
		var s domain.MatchSuggestion
		if err := rows.Scan(&s.ID, &s.RequestID, &s.OfferID, &s.Score, &s.Reasoning,
			&s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion row: %w", err)
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOffer(row rowScanner) (*domain.AidOffer, error) {
	var offer domain.AidOffer
	var matched uuid.NullUUID
	err := row.Scan(&offer.ID, &offer.SupplierUserID, &offer.ResourceType, &offer.Quantity,
		&offer.Status, &matched, &offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if matched.Valid {
		id := matched.UUID
		offer.MatchedRequestID = &id
	}
	return &offer, nil
}
