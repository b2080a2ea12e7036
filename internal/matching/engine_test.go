package matching

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/domain"
	"github.com/bhavay2002/Crisis-Connect-sub000/internal/events"
)

type fakeStore struct {
	mu          sync.Mutex
	offers      map[uuid.UUID]*domain.AidOffer
	requests    map[uuid.UUID]*domain.ResourceRequest
	suggestions []*domain.MatchSuggestion

	// failSuggestions makes the next N CreateMatchSuggestion calls fail
	failSuggestions int

	// overlap probe for run serialization
	inRun      bool
	overlapped bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		offers:   make(map[uuid.UUID]*domain.AidOffer),
		requests: make(map[uuid.UUID]*domain.ResourceRequest),
	}
}

func (f *fakeStore) addOffer(offer *domain.AidOffer) *domain.AidOffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers[offer.ID] = offer
	return offer
}

func (f *fakeStore) addRequest(request *domain.ResourceRequest) *domain.ResourceRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[request.ID] = request
	return request
}

func (f *fakeStore) GetOffer(ctx context.Context, id uuid.UUID) (*domain.AidOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	offer, ok := f.offers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *offer
	return &copied, nil
}

func (f *fakeStore) GetRequest(ctx context.Context, id uuid.UUID) (*domain.ResourceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (f *fakeStore) GetAvailableOffers(ctx context.Context) ([]domain.AidOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inRun {
		f.overlapped = true
	}
	f.inRun = true

	var out []domain.AidOffer
	for _, offer := range f.offers {
		if offer.Status == domain.OfferAvailable {
			out = append(out, *offer)
		}
	}
	return out, nil
}

func (f *fakeStore) GetPendingRequests(ctx context.Context) ([]domain.ResourceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ResourceRequest
	for _, request := range f.requests {
		if request.Status == domain.RequestPending {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAllOffers(ctx context.Context) ([]domain.AidOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AidOffer
	for _, offer := range f.offers {
		out = append(out, *offer)
	}
	return out, nil
}

func (f *fakeStore) GetAllRequests(ctx context.Context) ([]domain.ResourceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ResourceRequest
	for _, request := range f.requests {
		out = append(out, *request)
	}
	return out, nil
}

func (f *fakeStore) UpdateOfferStatus(ctx context.Context, id uuid.UUID, status domain.OfferStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	offer, ok := f.offers[id]
	if !ok {
		return domain.ErrNotFound
	}
	offer.Status = status
	if status != domain.OfferCommitted && status != domain.OfferDelivered {
		offer.MatchedRequestID = nil
	}
	offer.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) MatchOfferToRequest(ctx context.Context, offerID, requestID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	offer, ok := f.offers[offerID]
	if !ok {
		return domain.ErrNotFound
	}
	offer.Status = domain.OfferCommitted
	offer.MatchedRequestID = &requestID
	offer.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) UpdateRequestStatus(ctx context.Context, id uuid.UUID, status domain.RequestStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return domain.ErrNotFound
	}
	request.Status = status
	request.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) CreateMatchSuggestion(ctx context.Context, s *domain.MatchSuggestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSuggestions > 0 {
		f.failSuggestions--
		return errors.New("write failed")
	}
	copied := *s
	f.suggestions = append(f.suggestions, &copied)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*events.Event
	store  *fakeStore
}

func (f *fakeNotifier) Publish(ctx context.Context, event *events.Event) error {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()

	if f.store != nil {
		f.store.mu.Lock()
		f.store.inRun = false
		f.store.mu.Unlock()
	}
	return nil
}

func offerAt(store *fakeStore, resourceType string, quantity int, age time.Duration) *domain.AidOffer {
	offer := domain.NewAidOffer("supplier1", resourceType, quantity)
	offer.CreatedAt = time.Now().Add(-age)
	return store.addOffer(offer)
}

func requestAt(store *fakeStore, resourceType string, quantity int, urgency domain.Urgency, age time.Duration) *domain.ResourceRequest {
	request := domain.NewResourceRequest("requester1", resourceType, quantity, urgency)
	request.CreatedAt = time.Now().Add(-age)
	return store.addRequest(request)
}

func TestRunBatchAllocation(t *testing.T) {
	ctx := context.Background()

	t.Run("empty pools complete without error or event", func(t *testing.T) {
		store := newFakeStore()
		notifier := &fakeNotifier{}
		engine := NewEngine(store, notifier)

		requestAt(store, "water", 40, domain.UrgencyHigh, time.Hour)

		result, err := engine.RunBatchAllocation(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.MatchedCount)
		assert.Equal(t, 1, result.TotalRequests)
		assert.Equal(t, 0, result.TotalOffers)
		assert.Empty(t, result.Matches)
		assert.Empty(t, notifier.events)
	})

	t.Run("oldest request wins the only offer", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		offer := offerAt(store, "water", 100, 48*time.Hour)
		older := requestAt(store, "water", 40, domain.UrgencyHigh, 2*time.Hour)
		newer := requestAt(store, "water", 80, domain.UrgencyHigh, 1*time.Hour)

		result, err := engine.RunBatchAllocation(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, result.MatchedCount)
		assert.Equal(t, older.ID.String(), result.Matches[0].RequestID)
		assert.Equal(t, offer.ID.String(), result.Matches[0].OfferID)
		assert.NotEqual(t, newer.ID.String(), result.Matches[0].RequestID)

		require.Len(t, store.suggestions, 1)
		assert.Equal(t, older.ID, store.suggestions[0].RequestID)
		assert.Equal(t, domain.SuggestionPending, store.suggestions[0].Status)
	})

	t.Run("no offer is suggested twice within a run", func(t *testing.T) {
		rng := rand.New(rand.NewSource(99))
		types := []string{"water", "food", "blankets", "medical_supplies"}

		for trial := 0; trial < 20; trial++ {
			store := newFakeStore()
			engine := NewEngine(store, nil)

			for i := 0; i < 3+rng.Intn(10); i++ {
				offerAt(store, types[rng.Intn(len(types))], 1+rng.Intn(100),
					time.Duration(rng.Intn(300))*time.Hour)
			}
			for i := 0; i < 3+rng.Intn(15); i++ {
				requestAt(store, types[rng.Intn(len(types))], 1+rng.Intn(100),
					domain.ValidUrgencies[rng.Intn(len(domain.ValidUrgencies))],
					time.Duration(rng.Intn(300))*time.Hour)
			}

			result, err := engine.RunBatchAllocation(ctx)
			require.NoError(t, err)

			seen := make(map[string]bool)
			for _, match := range result.Matches {
				assert.False(t, seen[match.OfferID], "offer %s suggested twice", match.OfferID)
				seen[match.OfferID] = true
			}
			assert.Equal(t, len(result.Matches), result.MatchedCount)
		}
	})

	t.Run("mismatched types leave requests unmatched", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		offerAt(store, "blankets", 100, time.Hour)
		requestAt(store, "water", 40, domain.UrgencyCritical, time.Hour)

		result, err := engine.RunBatchAllocation(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.MatchedCount)
		assert.Empty(t, store.suggestions)
	})

	t.Run("persistence failure keeps the offer in the pool", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		offerAt(store, "water", 100, 48*time.Hour)
		first := requestAt(store, "water", 40, domain.UrgencyHigh, 2*time.Hour)
		second := requestAt(store, "water", 40, domain.UrgencyHigh, 1*time.Hour)

		// Both the write and its retry fail for the first request.
		store.failSuggestions = 2

		result, err := engine.RunBatchAllocation(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.PartialFailures)
		require.Equal(t, 1, result.MatchedCount)
		assert.Equal(t, second.ID.String(), result.Matches[0].RequestID)
		assert.NotEqual(t, first.ID.String(), result.Matches[0].RequestID)
	})

	t.Run("transient write failure is retried", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		offerAt(store, "water", 100, 48*time.Hour)
		requestAt(store, "water", 40, domain.UrgencyHigh, time.Hour)

		store.failSuggestions = 1

		result, err := engine.RunBatchAllocation(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.MatchedCount)
		assert.Equal(t, 0, result.PartialFailures)
		assert.Len(t, store.suggestions, 1)
	})

	t.Run("completion event carries the run summary", func(t *testing.T) {
		store := newFakeStore()
		notifier := &fakeNotifier{}
		engine := NewEngine(store, notifier)

		offerAt(store, "water", 100, 48*time.Hour)
		requestAt(store, "water", 40, domain.UrgencyHigh, time.Hour)

		result, err := engine.RunBatchAllocation(ctx)
		require.NoError(t, err)
		require.Len(t, notifier.events, 1)

		event := notifier.events[0]
		assert.Equal(t, events.AllocationCompleted, event.EventType)
		assert.Equal(t, result.RunID, event.SubjectID)

		var payload events.AllocationCompletedPayload
		require.NoError(t, event.ParsePayload(&payload))
		assert.Equal(t, result.RunID, payload.RunID)
		assert.Equal(t, 1, payload.MatchedCount)
	})

	t.Run("concurrent runs are serialized", func(t *testing.T) {
		store := newFakeStore()
		notifier := &fakeNotifier{store: store}
		engine := NewEngine(store, notifier)

		for i := 0; i < 5; i++ {
			offerAt(store, "water", 100, time.Duration(i)*time.Hour)
			requestAt(store, "water", 40, domain.UrgencyHigh, time.Duration(i)*time.Hour)
		}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := engine.RunBatchAllocation(ctx)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		store.mu.Lock()
		overlapped := store.overlapped
		store.mu.Unlock()
		assert.False(t, overlapped, "two batch runs observed in flight at once")
	})
}

func TestFindMatches(t *testing.T) {
	ctx := context.Background()

	t.Run("for request returns offers sorted by score", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		full := offerAt(store, "water", 100, 48*time.Hour)
		partial := offerAt(store, "water", 20, 48*time.Hour)
		offerAt(store, "blankets", 100, 48*time.Hour)
		request := requestAt(store, "water", 80, domain.UrgencyHigh, time.Hour)

		matches, err := engine.FindMatchesForRequest(ctx, request.ID)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, full.ID.String(), matches[0].OfferID)
		assert.Equal(t, partial.ID.String(), matches[1].OfferID)
		assert.Greater(t, matches[0].Score, matches[1].Score)
	})

	t.Run("for request is read-only", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		offer := offerAt(store, "water", 100, time.Hour)
		request := requestAt(store, "water", 40, domain.UrgencyHigh, time.Hour)

		_, err := engine.FindMatchesForRequest(ctx, request.ID)
		require.NoError(t, err)
		assert.Empty(t, store.suggestions)
		assert.Equal(t, domain.OfferAvailable, store.offers[offer.ID].Status)
	})

	t.Run("for offer returns pending requests sorted by score", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		offer := offerAt(store, "food", 50, 48*time.Hour)
		covered := requestAt(store, "food", 30, domain.UrgencyCritical, 2*time.Hour)
		oversized := requestAt(store, "food", 200, domain.UrgencyCritical, time.Hour)
		fulfilled := requestAt(store, "food", 10, domain.UrgencyCritical, time.Hour)
		fulfilled.Status = domain.RequestFulfilled

		matches, err := engine.FindMatchesForOffer(ctx, offer.ID)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, covered.ID.String(), matches[0].RequestID)
		assert.Equal(t, oversized.ID.String(), matches[1].RequestID)
	})

	t.Run("unknown ids surface not found", func(t *testing.T) {
		engine := NewEngine(newFakeStore(), nil)

		_, err := engine.FindMatchesForRequest(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = engine.FindMatchesForOffer(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCommitMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("commits the offer and starts the request", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		offer := offerAt(store, "water", 100, time.Hour)
		request := requestAt(store, "water", 40, domain.UrgencyHigh, time.Hour)

		require.NoError(t, engine.CommitMatch(ctx, offer.ID, request.ID))

		assert.Equal(t, domain.OfferCommitted, store.offers[offer.ID].Status)
		require.NotNil(t, store.offers[offer.ID].MatchedRequestID)
		assert.Equal(t, request.ID, *store.offers[offer.ID].MatchedRequestID)
		assert.Equal(t, domain.RequestInProgress, store.requests[request.ID].Status)
	})

	t.Run("rejects a non-available offer", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		offer := offerAt(store, "water", 100, time.Hour)
		offer.Status = domain.OfferCancelled
		request := requestAt(store, "water", 40, domain.UrgencyHigh, time.Hour)

		err := engine.CommitMatch(ctx, offer.ID, request.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("rejects a non-pending request", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		offer := offerAt(store, "water", 100, time.Hour)
		request := requestAt(store, "water", 40, domain.UrgencyHigh, time.Hour)
		request.Status = domain.RequestCancelled

		err := engine.CommitMatch(ctx, offer.ID, request.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestAdvanceOffer(t *testing.T) {
	ctx := context.Background()

	t.Run("permitted transitions", func(t *testing.T) {
		tests := []struct {
			from domain.OfferStatus
			to   domain.OfferStatus
		}{
			{domain.OfferAvailable, domain.OfferCancelled},
			{domain.OfferCommitted, domain.OfferDelivered},
			{domain.OfferCommitted, domain.OfferCancelled},
		}
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
				store := newFakeStore()
				engine := NewEngine(store, nil)
				offer := offerAt(store, "water", 10, time.Hour)
				offer.Status = tt.from

				updated, err := engine.AdvanceOffer(ctx, offer.ID, tt.to)
				require.NoError(t, err)
				assert.Equal(t, tt.to, updated.Status)
			})
		}
	})

	t.Run("forbidden transitions", func(t *testing.T) {
		tests := []struct {
			from domain.OfferStatus
			to   domain.OfferStatus
		}{
			{domain.OfferAvailable, domain.OfferCommitted},
			{domain.OfferAvailable, domain.OfferDelivered},
			{domain.OfferDelivered, domain.OfferAvailable},
			{domain.OfferDelivered, domain.OfferCancelled},
			{domain.OfferCancelled, domain.OfferAvailable},
			{domain.OfferCommitted, domain.OfferAvailable},
		}
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
				store := newFakeStore()
				engine := NewEngine(store, nil)
				offer := offerAt(store, "water", 10, time.Hour)
				offer.Status = tt.from

				_, err := engine.AdvanceOffer(ctx, offer.ID, tt.to)
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			})
		}
	})

	t.Run("committed is only reachable through a match commit", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		offer := offerAt(store, "water", 100, time.Hour)
		request := requestAt(store, "water", 40, domain.UrgencyHigh, time.Hour)

		_, err := engine.AdvanceOffer(ctx, offer.ID, domain.OfferCommitted)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, domain.OfferAvailable, store.offers[offer.ID].Status)
		assert.Nil(t, store.offers[offer.ID].MatchedRequestID)

		require.NoError(t, engine.CommitMatch(ctx, offer.ID, request.ID))
		assert.Equal(t, domain.OfferCommitted, store.offers[offer.ID].Status)
		assert.NotNil(t, store.offers[offer.ID].MatchedRequestID)
	})

	t.Run("matched request reference tracks the offer lifecycle", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		offer := offerAt(store, "water", 100, time.Hour)
		request := requestAt(store, "water", 40, domain.UrgencyHigh, time.Hour)

		// available: no match reference
		assert.Nil(t, store.offers[offer.ID].MatchedRequestID)

		// committed and delivered: reference present
		require.NoError(t, engine.CommitMatch(ctx, offer.ID, request.ID))
		require.NotNil(t, store.offers[offer.ID].MatchedRequestID)

		delivered, err := engine.AdvanceOffer(ctx, offer.ID, domain.OfferDelivered)
		require.NoError(t, err)
		require.NotNil(t, delivered.MatchedRequestID)
		assert.Equal(t, request.ID, *delivered.MatchedRequestID)

		// cancelled: reference cleared
		other := offerAt(store, "food", 50, time.Hour)
		otherRequest := requestAt(store, "food", 20, domain.UrgencyLow, time.Hour)
		require.NoError(t, engine.CommitMatch(ctx, other.ID, otherRequest.ID))
		cancelled, err := engine.AdvanceOffer(ctx, other.ID, domain.OfferCancelled)
		require.NoError(t, err)
		assert.Nil(t, cancelled.MatchedRequestID)
	})

	t.Run("cancelling a committed offer clears its match", func(t *testing.T) {
		store := newFakeStore()
		engine := NewEngine(store, nil)

		offer := offerAt(store, "water", 100, time.Hour)
		request := requestAt(store, "water", 40, domain.UrgencyHigh, time.Hour)
		require.NoError(t, engine.CommitMatch(ctx, offer.ID, request.ID))

		updated, err := engine.AdvanceOffer(ctx, offer.ID, domain.OfferCancelled)
		require.NoError(t, err)
		assert.Nil(t, updated.MatchedRequestID)
	})

	t.Run("unknown offer surfaces not found", func(t *testing.T) {
		engine := NewEngine(newFakeStore(), nil)
		_, err := engine.AdvanceOffer(ctx, uuid.New(), domain.OfferCommitted)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAdvanceRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("permitted transitions", func(t *testing.T) {
		tests := []struct {
			from domain.RequestStatus
			to   domain.RequestStatus
		}{
			{domain.RequestPending, domain.RequestInProgress},
			{domain.RequestPending, domain.RequestCancelled},
			{domain.RequestInProgress, domain.RequestFulfilled},
			{domain.RequestInProgress, domain.RequestCancelled},
		}
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
				store := newFakeStore()
				engine := NewEngine(store, nil)
				request := requestAt(store, "water", 10, domain.UrgencyLow, time.Hour)
				request.Status = tt.from

				updated, err := engine.AdvanceRequest(ctx, request.ID, tt.to)
				require.NoError(t, err)
				assert.Equal(t, tt.to, updated.Status)
			})
		}
	})

	t.Run("forbidden transitions", func(t *testing.T) {
		tests := []struct {
			from domain.RequestStatus
			to   domain.RequestStatus
		}{
			{domain.RequestPending, domain.RequestFulfilled},
			{domain.RequestFulfilled, domain.RequestPending},
			{domain.RequestFulfilled, domain.RequestCancelled},
			{domain.RequestCancelled, domain.RequestPending},
			{domain.RequestInProgress, domain.RequestPending},
		}
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
				store := newFakeStore()
				engine := NewEngine(store, nil)
				request := requestAt(store, "water", 10, domain.UrgencyLow, time.Hour)
				request.Status = tt.from

				_, err := engine.AdvanceRequest(ctx, request.ID, tt.to)
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			})
		}
	})

	t.Run("unknown request surfaces not found", func(t *testing.T) {
		engine := NewEngine(newFakeStore(), nil)
		_, err := engine.AdvanceRequest(ctx, uuid.New(), domain.RequestInProgress)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
