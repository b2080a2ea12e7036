package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/domain"
)

// Match scoring weights. Resource type equality is a hard filter; quantity
// coverage carries the most weight, urgency raises the priority of sufficient
// offers, and offer freshness adds a small optional bonus. Absent signals
// contribute zero, never a penalty.
const (
	scoreTypeMatchBase     = 30
	scoreQuantityFull      = 40
	scoreUrgencyLow        = 5
	scoreUrgencyMedium     = 10
	scoreUrgencyHigh       = 15
	scoreUrgencyCritical   = 20
	scoreFreshOffer        = 10
	scoreRecentOffer       = 5
	freshOfferWindowHours  = 24.0
	recentOfferWindowHours = 168.0
)

// MatchScore is the compatibility estimate for one offer/request pair
type MatchScore struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// ScoreMatch estimates the quality of pairing one aid offer with one resource
// request. Pure function; safe for concurrent use. Mismatched resource types
// score 0 and are expected to be filtered out upstream.
func ScoreMatch(offer domain.AidOffer, request domain.ResourceRequest) MatchScore {
	if !strings.EqualFold(offer.ResourceType, request.ResourceType) {
		return MatchScore{
			Score:     0,
			Reasoning: fmt.Sprintf("resource type mismatch (%s vs %s)", offer.ResourceType, request.ResourceType),
		}
	}

	score := scoreTypeMatchBase
	parts := []string{fmt.Sprintf("resource type %s matches", request.ResourceType)}

	offerQty := offer.Quantity
	requestQty := request.Quantity
	if offerQty < 0 {
		offerQty = 0
	}

	sufficient := false
	switch {
	case requestQty <= 0:
		// Malformed demand; do not let it inflate or corrupt the score.
		parts = append(parts, "requested quantity is not positive, coverage not scored")
	case offerQty >= requestQty:
		sufficient = true
		score += scoreQuantityFull
		parts = append(parts, fmt.Sprintf("offer covers full quantity (%d of %d)", offerQty, requestQty))
	case offerQty > 0:
		coverage := float64(offerQty) / float64(requestQty)
		score += int(math.Round(coverage * scoreQuantityFull))
		parts = append(parts, fmt.Sprintf("offer covers %d%% of requested quantity (%d of %d)",
			int(math.Round(coverage*100)), offerQty, requestQty))
	default:
		parts = append(parts, "offer has no usable quantity")
	}

	if sufficient {
		bonus := urgencyBonus(request.Urgency)
		score += bonus
		parts = append(parts, fmt.Sprintf("%s urgency (+%d)", request.Urgency, bonus))
	}

	if !offer.CreatedAt.IsZero() {
		ageHours := time.Since(offer.CreatedAt).Hours()
		if ageHours <= freshOfferWindowHours {
			score += scoreFreshOffer
			parts = append(parts, "offer posted within the last 24h")
		} else if ageHours <= recentOfferWindowHours {
			score += scoreRecentOffer
			parts = append(parts, "offer posted within the last week")
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return MatchScore{
		Score:     score,
		Reasoning: strings.Join(parts, "; "),
	}
}

func urgencyBonus(u domain.Urgency) int {
	switch u {
	case domain.UrgencyCritical:
		return scoreUrgencyCritical
	case domain.UrgencyHigh:
		return scoreUrgencyHigh
	case domain.UrgencyMedium:
		return scoreUrgencyMedium
	default:
		return scoreUrgencyLow
	}
}

// Match is one scored offer/request pairing
type Match struct {
	OfferID   string `json:"offer_id"`
	RequestID string `json:"request_id"`
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// candidate pairs a scored match with the creation time used for tie-breaking
type candidate struct {
	match     Match
	createdAt time.Time
}

// sortCandidates orders candidates descending by score. Ties go to the
// earlier creation time, then to the lexically smaller id, so results are
// deterministic and reproducible.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].match.Score != candidates[j].match.Score {
			return candidates[i].match.Score > candidates[j].match.Score
		}
		if !candidates[i].createdAt.Equal(candidates[j].createdAt) {
			return candidates[i].createdAt.Before(candidates[j].createdAt)
		}
		return candidates[i].match.OfferID+candidates[i].match.RequestID <
			candidates[j].match.OfferID+candidates[j].match.RequestID
	})
}
