package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types matching the contract
const (
	ReportCreated       = "report.created"
	ReportVoted         = "report.voted"
	ReportVerified      = "report.verified"
	ReportConfirmed     = "report.confirmed"
	ReportFlagged       = "report.flagged"
	ReputationChanged   = "reputation.changed"
	AllocationCompleted = "allocation.completed"
)

// Event represents a domain event
type Event struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	SubjectID string          `json:"subject_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// ReportCreatedPayload - published when a citizen submits a report
type ReportCreatedPayload struct {
	ReportID       string    `json:"report_id"`
	ReporterUserID string    `json:"reporter_user_id"`
	ReportType     string    `json:"report_type"`
	Severity       string    `json:"severity"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReportVotedPayload - published on every up/down vote
type ReportVotedPayload struct {
	ReportID    string    `json:"report_id"`
	VoterUserID string    `json:"voter_user_id"`
	Upvote      bool      `json:"upvote"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportVerifiedPayload - published when a responder verifies a report
type ReportVerifiedPayload struct {
	ReportID       string    `json:"report_id"`
	VerifierUserID string    `json:"verifier_user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReportConfirmedPayload - published on official confirm/unconfirm
type ReportConfirmedPayload struct {
	ReportID    string    `json:"report_id"`
	ResponderID string    `json:"responder_id"`
	Confirmed   bool      `json:"confirmed"`
	ChangedAt   time.Time `json:"changed_at"`
}

// ReportFlaggedPayload - published on flag/unflag
type ReportFlaggedPayload struct {
	ReportID  string    `json:"report_id"`
	FlagType  string    `json:"flag_type"`
	Flagged   bool      `json:"flagged"`
	ChangedAt time.Time `json:"changed_at"`
}

// ReputationChangedPayload - published when a reputation counter moves
type ReputationChangedPayload struct {
	UserID    string    `json:"user_id"`
	Counter   string    `json:"counter"`
	Delta     int       `json:"delta"`
	ChangedAt time.Time `json:"changed_at"`
}

// AllocationCompletedPayload - the batch run summary handed to the external
// notifier. This service produces the payload; delivery is someone else's job.
type AllocationCompletedPayload struct {
	RunID           string    `json:"run_id"`
	TotalRequests   int       `json:"total_requests"`
	TotalOffers     int       `json:"total_offers"`
	MatchedCount    int       `json:"matched_count"`
	PartialFailures int       `json:"partial_failures"`
	CompletedAt     time.Time `json:"completed_at"`
}

// NewEvent creates a new Event
func NewEvent(eventType string, subjectID string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:   uuid.New().String(),
		EventType: eventType,
		SubjectID: subjectID,
		Payload:   payloadBytes,
		Timestamp: time.Now(),
	}, nil
}

// ToJSON converts event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses event from JSON bytes
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ParsePayload parses the payload into the specified type
func (e *Event) ParsePayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
