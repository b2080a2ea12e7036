package domain

import (
	"time"

	"github.com/google/uuid"
)

// AidOffer represents a supplier's offer of aid resources
type AidOffer struct {
	ID               uuid.UUID   `json:"id"`
	SupplierUserID   string      `json:"supplier_user_id"`
	ResourceType     string      `json:"resource_type"`
	Quantity         int         `json:"quantity"`
	Status           OfferStatus `json:"status"`
	MatchedRequestID *uuid.UUID  `json:"matched_request_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// OfferStatus follows a strict forward-only state machine:
// available -> committed -> delivered, with cancellation reachable
// from available or committed.
type OfferStatus string

const (
	OfferAvailable OfferStatus = "available"
	OfferCommitted OfferStatus = "committed"
	OfferDelivered OfferStatus = "delivered"
	OfferCancelled OfferStatus = "cancelled"
)

// ValidOfferStatuses lists accepted offer statuses
var ValidOfferStatuses = []OfferStatus{
	OfferAvailable,
	OfferCommitted,
	OfferDelivered,
	OfferCancelled,
}

// IsValidOfferStatus checks if the offer status is valid
func IsValidOfferStatus(s OfferStatus) bool {
	for _, v := range ValidOfferStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the offer status machine permits the move
func (s OfferStatus) CanTransitionTo(next OfferStatus) bool {
	switch s {
	case OfferAvailable:
		return next == OfferCommitted || next == OfferCancelled
	case OfferCommitted:
		return next == OfferDelivered || next == OfferCancelled
	default:
		return false
	}
}

// NewAidOffer creates a new AidOffer in the available state
func NewAidOffer(supplierUserID, resourceType string, quantity int) *AidOffer {
	now := time.Now()
	return &AidOffer{
		ID:             uuid.New(),
		SupplierUserID: supplierUserID,
		ResourceType:   resourceType,
		Quantity:       quantity,
		Status:         OfferAvailable,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ResourceRequest represents unmet demand for a resource type
type ResourceRequest struct {
	ID              uuid.UUID     `json:"id"`
	RequesterUserID string        `json:"requester_user_id"`
	ResourceType    string        `json:"resource_type"`
	Quantity        int           `json:"quantity"`
	Urgency         Urgency       `json:"urgency"`
	Status          RequestStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Urgency indicates how quickly the requested resource is needed
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ValidUrgencies lists accepted urgency levels
var ValidUrgencies = []Urgency{
	UrgencyLow,
	UrgencyMedium,
	UrgencyHigh,
	UrgencyCritical,
}

// IsValidUrgency checks if the urgency level is valid
func IsValidUrgency(u Urgency) bool {
	for _, v := range ValidUrgencies {
		if v == u {
			return true
		}
	}
	return false
}

// RequestStatus follows pending -> in_progress -> fulfilled, with
// cancellation reachable from pending or in_progress.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestInProgress RequestStatus = "in_progress"
	RequestFulfilled  RequestStatus = "fulfilled"
	RequestCancelled  RequestStatus = "cancelled"
)

// ValidRequestStatuses lists accepted request statuses
var ValidRequestStatuses = []RequestStatus{
	RequestPending,
	RequestInProgress,
	RequestFulfilled,
	RequestCancelled,
}

// IsValidRequestStatus checks if the request status is valid
func IsValidRequestStatus(s RequestStatus) bool {
	for _, v := range ValidRequestStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the request status machine permits the move
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch s {
	case RequestPending:
		return next == RequestInProgress || next == RequestCancelled
	case RequestInProgress:
		return next == RequestFulfilled || next == RequestCancelled
	default:
		return false
	}
}

// NewResourceRequest creates a new ResourceRequest in the pending state
func NewResourceRequest(requesterUserID, resourceType string, quantity int, urgency Urgency) *ResourceRequest {
	now := time.Now()
	return &ResourceRequest{
		ID:              uuid.New(),
		RequesterUserID: requesterUserID,
		ResourceType:    resourceType,
		Quantity:        quantity,
		Urgency:         urgency,
		Status:          RequestPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// MatchSuggestion is the audit record the batch allocation run persists for
// each request/offer pairing it proposes. Acceptance or rejection of a
// suggestion is a downstream workflow; this service only ever writes the
// pending status.
type MatchSuggestion struct {
	ID        uuid.UUID `json:"id"`
	RequestID uuid.UUID `json:"request_id"`
	OfferID   uuid.UUID `json:"offer_id"`
	Score     int       `json:"score"`
	Reasoning string    `json:"reasoning"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// SuggestionPending is the only suggestion status this service writes
const SuggestionPending = "pending"
