package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/domain"
)

// staleTime is old enough to fall outside both freshness windows
var staleTime = time.Now().Add(-30 * 24 * time.Hour)

func makeOffer(resourceType string, quantity int, createdAt time.Time) domain.AidOffer {
	offer := domain.NewAidOffer("supplier1", resourceType, quantity)
	offer.CreatedAt = createdAt
	return *offer
}

func makeRequest(resourceType string, quantity int, urgency domain.Urgency) domain.ResourceRequest {
	request := domain.NewResourceRequest("requester1", resourceType, quantity, urgency)
	request.CreatedAt = staleTime
	return *request
}

func TestScoreMatch(t *testing.T) {
	t.Run("resource type mismatch scores zero", func(t *testing.T) {
		offer := makeOffer("water", 100, staleTime)
		request := makeRequest("blankets", 10, domain.UrgencyCritical)

		ms := ScoreMatch(offer, request)
		assert.Equal(t, 0, ms.Score)
		assert.Contains(t, ms.Reasoning, "mismatch")
	})

	t.Run("resource type comparison is case-insensitive", func(t *testing.T) {
		offer := makeOffer("Water", 10, staleTime)
		request := makeRequest("water", 10, domain.UrgencyLow)
		assert.Greater(t, ScoreMatch(offer, request).Score, 0)
	})

	t.Run("full coverage with urgency", func(t *testing.T) {
		tests := []struct {
			urgency  domain.Urgency
			expected int
		}{
			{domain.UrgencyLow, 75},      // 30 + 40 + 5
			{domain.UrgencyMedium, 80},   // 30 + 40 + 10
			{domain.UrgencyHigh, 85},     // 30 + 40 + 15
			{domain.UrgencyCritical, 90}, // 30 + 40 + 20
		}
		for _, tt := range tests {
			t.Run(string(tt.urgency), func(t *testing.T) {
				offer := makeOffer("water", 100, staleTime)
				request := makeRequest("water", 80, tt.urgency)
				ms := ScoreMatch(offer, request)
				assert.Equal(t, tt.expected, ms.Score)
			})
		}
	})

	t.Run("partial coverage is proportional and skips the urgency bonus", func(t *testing.T) {
		offer := makeOffer("water", 40, staleTime)
		request := makeRequest("water", 80, domain.UrgencyCritical)

		ms := ScoreMatch(offer, request)
		// 30 base + round(0.5 * 40), no urgency bonus for insufficient offers
		assert.Equal(t, 50, ms.Score)
		assert.Contains(t, ms.Reasoning, "50%")
	})

	t.Run("fresh offer gets a bonus", func(t *testing.T) {
		fresh := makeOffer("water", 100, time.Now().Add(-1*time.Hour))
		recent := makeOffer("water", 100, time.Now().Add(-3*24*time.Hour))
		stale := makeOffer("water", 100, staleTime)
		request := makeRequest("water", 80, domain.UrgencyLow)

		assert.Equal(t, 85, ScoreMatch(fresh, request).Score)
		assert.Equal(t, 80, ScoreMatch(recent, request).Score)
		assert.Equal(t, 75, ScoreMatch(stale, request).Score)
	})

	t.Run("non-positive requested quantity does not corrupt the score", func(t *testing.T) {
		offer := makeOffer("water", 100, staleTime)
		request := makeRequest("water", 0, domain.UrgencyCritical)

		ms := ScoreMatch(offer, request)
		assert.Equal(t, 30, ms.Score)
	})

	t.Run("score is clamped to 100", func(t *testing.T) {
		offer := makeOffer("water", 1000, time.Now())
		request := makeRequest("water", 1, domain.UrgencyCritical)
		assert.LessOrEqual(t, ScoreMatch(offer, request).Score, 100)
	})

	t.Run("scoring is deterministic", func(t *testing.T) {
		offer := makeOffer("medical_supplies", 25, staleTime)
		request := makeRequest("medical_supplies", 60, domain.UrgencyHigh)

		first := ScoreMatch(offer, request)
		for i := 0; i < 5; i++ {
			again := ScoreMatch(offer, request)
			assert.Equal(t, first.Score, again.Score)
			assert.Equal(t, first.Reasoning, again.Reasoning)
		}
	})

	t.Run("reasoning explains every contribution", func(t *testing.T) {
		offer := makeOffer("water", 100, staleTime)
		request := makeRequest("water", 80, domain.UrgencyHigh)

		ms := ScoreMatch(offer, request)
		assert.Contains(t, ms.Reasoning, "resource type water matches")
		assert.Contains(t, ms.Reasoning, "full quantity")
		assert.Contains(t, ms.Reasoning, "high urgency")
	})
}

func TestSortCandidates(t *testing.T) {
	t.Run("orders by score then age then id", func(t *testing.T) {
		older := time.Now().Add(-2 * time.Hour)
		newer := time.Now().Add(-1 * time.Hour)
		candidates := []candidate{
			{match: Match{OfferID: "b", Score: 70}, createdAt: newer},
			{match: Match{OfferID: "c", Score: 90}, createdAt: newer},
			{match: Match{OfferID: "a", Score: 70}, createdAt: older},
			{match: Match{OfferID: "d", Score: 70}, createdAt: newer},
		}

		sortCandidates(candidates)

		assert.Equal(t, "c", candidates[0].match.OfferID)
		assert.Equal(t, "a", candidates[1].match.OfferID)
		assert.Equal(t, "b", candidates[2].match.OfferID)
		assert.Equal(t, "d", candidates[3].match.OfferID)
	})
}
