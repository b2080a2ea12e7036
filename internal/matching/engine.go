package matching

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/domain"
	"github.com/bhavay2002/Crisis-Connect-sub000/internal/events"
)

// Store is the persistence collaborator for offers, requests, and suggestions
type Store interface {
	GetOffer(ctx context.Context, id uuid.UUID) (*domain.AidOffer, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*domain.ResourceRequest, error)
	GetAvailableOffers(ctx context.Context) ([]domain.AidOffer, error)
	GetPendingRequests(ctx context.Context) ([]domain.ResourceRequest, error)
	GetAllOffers(ctx context.Context) ([]domain.AidOffer, error)
	GetAllRequests(ctx context.Context) ([]domain.ResourceRequest, error)
	UpdateOfferStatus(ctx context.Context, id uuid.UUID, status domain.OfferStatus) error
	MatchOfferToRequest(ctx context.Context, offerID, requestID uuid.UUID) error
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, status domain.RequestStatus) error
	CreateMatchSuggestion(ctx context.Context, s *domain.MatchSuggestion) error
}

// Notifier receives the batch completion summary. A nil notifier is allowed;
// the summary is then only logged.
type Notifier interface {
	Publish(ctx context.Context, event *events.Event) error
}

// Engine orchestrates match scoring over the offer/request pools.
//
// Batch runs are serialized: runMu is held for the whole run so two
// concurrent batch invocations can never share (and double-consume) the same
// offer pool. Single-pair lookups take no lock; they are read-only over a
// fresh snapshot.
type Engine struct {
	store Store
	bus   Notifier

	runMu sync.Mutex
}

// NewEngine creates an allocation engine
func NewEngine(store Store, bus Notifier) *Engine {
	return &Engine{
		store: store,
		bus:   bus,
	}
}

// BatchMatch is one pairing recorded by a batch run
type BatchMatch struct {
	RequestID string `json:"request_id"`
	OfferID   string `json:"offer_id"`
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// BatchResult summarizes one batch allocation run
type BatchResult struct {
	RunID           string       `json:"run_id"`
	TotalRequests   int          `json:"total_requests"`
	TotalOffers     int          `json:"total_offers"`
	MatchedCount    int          `json:"matched_count"`
	PartialFailures int          `json:"partial_failures"`
	Matches         []BatchMatch `json:"matches"`
}

// FindMatchesForRequest scores every available offer against one request.
// Read-only; nothing is persisted. Results are sorted descending by score.
func (e *Engine) FindMatchesForRequest(ctx context.Context, requestID uuid.UUID) ([]Match, error) {
	request, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	offers, err := e.store.GetAvailableOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load available offers: %w", err)
	}

	var candidates []candidate
	for _, offer := range offers {
		ms := ScoreMatch(offer, *request)
		if ms.Score == 0 {
			continue
		}
		candidates = append(candidates, candidate{
			match: Match{
				OfferID:   offer.ID.String(),
				RequestID: request.ID.String(),
				Score:     ms.Score,
				Reasoning: ms.Reasoning,
			},
			createdAt: offer.CreatedAt,
		})
	}
	sortCandidates(candidates)

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, c.match)
	}
	return matches, nil
}

// FindMatchesForOffer scores every pending request against one offer.
// Read-only; nothing is persisted. Results are sorted descending by score.
func (e *Engine) FindMatchesForOffer(ctx context.Context, offerID uuid.UUID) ([]Match, error) {
	offer, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	requests, err := e.store.GetPendingRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending requests: %w", err)
	}

	var candidates []candidate
	for _, request := range requests {
		ms := ScoreMatch(*offer, request)
		if ms.Score == 0 {
			continue
		}
		candidates = append(candidates, candidate{
			match: Match{
				OfferID:   offer.ID.String(),
				RequestID: request.ID.String(),
				Score:     ms.Score,
				Reasoning: ms.Reasoning,
			},
			createdAt: request.CreatedAt,
		})
	}
	sortCandidates(candidates)

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, c.match)
	}
	return matches, nil
}

// RunBatchAllocation pairs every pending request against the pool of
// available offers, oldest unmet demand first. Each offer is consumed at most
// once per run: the winning offer is removed from the remaining pool before
// the next request is scored. Requests with no positive-scoring candidate are
// simply left unmatched.
func (e *Engine) RunBatchAllocation(ctx context.Context) (*BatchResult, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	offers, err := e.store.GetAvailableOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot available offers: %w", err)
	}
	requests, err := e.store.GetPendingRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot pending requests: %w", err)
	}

	result := &BatchResult{
		RunID:         uuid.New().String(),
		TotalRequests: len(requests),
		TotalOffers:   len(offers),
		Matches:       []BatchMatch{},
	}

	if len(offers) == 0 || len(requests) == 0 {
		log.Printf("[ALLOCATION] Run %s: nothing to do (%d offers, %d requests)",
			result.RunID, len(offers), len(requests))
		return result, nil
	}

	// Fixed processing order: oldest unmet demand first. Under scarcity this
	// policy decides who gets the offer, so it must be stable.
	sort.SliceStable(requests, func(i, j int) bool {
		if !requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].CreatedAt.Before(requests[j].CreatedAt)
		}
		return requests[i].ID.String() < requests[j].ID.String()
	})

	remaining := make([]domain.AidOffer, len(offers))
	copy(remaining, offers)

	for _, request := range requests {
		if request.Status != domain.RequestPending {
			log.Printf("[ALLOCATION] Run %s: skipping request %s in state %s: %v",
				result.RunID, request.ID, request.Status, domain.ErrInvalidState)
			continue
		}

		bestIdx, bestScore := e.scoreRequest(result.RunID, request, remaining)
		if bestIdx < 0 || bestScore.Score == 0 {
			continue
		}

		offer := remaining[bestIdx]
		suggestion := &domain.MatchSuggestion{
			ID:        uuid.New(),
			RequestID: request.ID,
			OfferID:   offer.ID,
			Score:     bestScore.Score,
			Reasoning: bestScore.Reasoning,
			Status:    domain.SuggestionPending,
			CreatedAt: time.Now(),
		}

		if err := e.persistSuggestion(ctx, suggestion); err != nil {
			// The suggestion was never recorded, so the offer stays in the
			// pool for later requests in this run.
			log.Printf("[ALLOCATION] Run %s: failed to persist suggestion for request %s: %v",
				result.RunID, request.ID, err)
			result.PartialFailures++
			continue
		}

		// Consume the offer before scoring the next request. This is what
		// keeps one offer out of two suggestions within the same run.
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)

		result.MatchedCount++
		result.Matches = append(result.Matches, BatchMatch{
			RequestID: request.ID.String(),
			OfferID:   offer.ID.String(),
			Score:     bestScore.Score,
			Reasoning: bestScore.Reasoning,
		})
	}

	log.Printf("[ALLOCATION] Run %s complete: %d/%d requests matched against %d offers (%d partial failures)",
		result.RunID, result.MatchedCount, result.TotalRequests, result.TotalOffers, result.PartialFailures)

	e.publishSummary(ctx, result)
	return result, nil
}

// scoreRequest finds the best-scoring offer for one request in the remaining
// pool. A scoring failure for one request must not abort the batch, so any
// panic out of the scorer is recovered and the request is treated as
// unmatched.
func (e *Engine) scoreRequest(runID string, request domain.ResourceRequest, remaining []domain.AidOffer) (bestIdx int, best MatchScore) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ALLOCATION] Run %s: scoring panic for request %s: %v. Leaving request unmatched.",
				runID, request.ID, r)
			bestIdx = -1
			best = MatchScore{}
		}
	}()

	bestIdx = -1
	var bestCreated time.Time
	for i, offer := range remaining {
		if offer.Status != domain.OfferAvailable {
			log.Printf("[ALLOCATION] Run %s: skipping offer %s in state %s: %v",
				runID, offer.ID, offer.Status, domain.ErrInvalidState)
			continue
		}
		ms := ScoreMatch(offer, request)
		if ms.Score == 0 {
			continue
		}
		if bestIdx < 0 || ms.Score > best.Score ||
			(ms.Score == best.Score && offer.CreatedAt.Before(bestCreated)) {
			bestIdx = i
			best = ms
			bestCreated = offer.CreatedAt
		}
	}
	return bestIdx, best
}

// persistSuggestion writes one suggestion, retrying once on failure before
// surfacing it as a partial failure.
func (e *Engine) persistSuggestion(ctx context.Context, s *domain.MatchSuggestion) error {
	err := e.store.CreateMatchSuggestion(ctx, s)
	if err == nil {
		return nil
	}
	log.Printf("[ALLOCATION] Retrying suggestion %s after write failure: %v", s.ID, err)
	return e.store.CreateMatchSuggestion(ctx, s)
}

func (e *Engine) publishSummary(ctx context.Context, result *BatchResult) {
	if e.bus == nil {
		return
	}
	payload := events.AllocationCompletedPayload{
		RunID:           result.RunID,
		TotalRequests:   result.TotalRequests,
		TotalOffers:     result.TotalOffers,
		MatchedCount:    result.MatchedCount,
		PartialFailures: result.PartialFailures,
		CompletedAt:     time.Now(),
	}
	event, err := events.NewEvent(events.AllocationCompleted, result.RunID, payload)
	if err != nil {
		log.Printf("[ALLOCATION] Failed to build completion event: %v", err)
		return
	}
	if err := e.bus.Publish(ctx, event); err != nil {
		log.Printf("[ALLOCATION] Failed to publish completion event: %v", err)
	}
}

// CommitMatch accepts a suggestion: the offer moves to committed with its
// matched request recorded, and the request moves to in_progress.
func (e *Engine) CommitMatch(ctx context.Context, offerID, requestID uuid.UUID) error {
	offer, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return err
	}
	request, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	if offer.Status != domain.OfferAvailable {
		return fmt.Errorf("offer %s is %s, not available: %w", offerID, offer.Status, domain.ErrInvalidState)
	}
	if request.Status != domain.RequestPending {
		return fmt.Errorf("request %s is %s, not pending: %w", requestID, request.Status, domain.ErrInvalidState)
	}

	if err := e.store.MatchOfferToRequest(ctx, offerID, requestID); err != nil {
		return fmt.Errorf("failed to commit offer %s to request %s: %w", offerID, requestID, err)
	}
	if err := e.store.UpdateRequestStatus(ctx, requestID, domain.RequestInProgress); err != nil {
		return fmt.Errorf("failed to move request %s to in_progress: %w", requestID, err)
	}

	log.Printf("[ALLOCATION] Committed offer %s to request %s", offerID, requestID)
	return nil
}

// AdvanceOffer moves an offer along its lifecycle, enforcing the
// forward-only state machine. The committed state is never reachable here:
// committing requires a matched request, which only CommitMatch records.
// Allowing it through a bare status update would leave a committed offer
// with no matched request.
func (e *Engine) AdvanceOffer(ctx context.Context, offerID uuid.UUID, next domain.OfferStatus) (*domain.AidOffer, error) {
	offer, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if next == domain.OfferCommitted {
		return nil, fmt.Errorf("offer %s can only be committed through a match commit: %w",
			offerID, domain.ErrInvalidTransition)
	}
	if !offer.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("offer %s cannot move %s -> %s: %w",
			offerID, offer.Status, next, domain.ErrInvalidTransition)
	}
	if err := e.store.UpdateOfferStatus(ctx, offerID, next); err != nil {
		return nil, err
	}
	return e.store.GetOffer(ctx, offerID)
}

// AdvanceRequest moves a request along its lifecycle, enforcing the
// forward-only state machine.
func (e *Engine) AdvanceRequest(ctx context.Context, requestID uuid.UUID, next domain.RequestStatus) (*domain.ResourceRequest, error) {
	request, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("request %s cannot move %s -> %s: %w",
			requestID, request.Status, next, domain.ErrInvalidTransition)
	}
	if err := e.store.UpdateRequestStatus(ctx, requestID, next); err != nil {
		return nil, err
	}
	return e.store.GetRequest(ctx, requestID)
}
