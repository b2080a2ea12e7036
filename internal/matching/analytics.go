package matching

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/domain"
)

// SupplySummary aggregates offered quantities. Supply is summed over offers
// in every status; OffersByStatus breaks the offer counts down separately.
// Demand, by contrast, only counts pending requests: the dashboard reads
// supply as total capacity and demand as unmet need.
type SupplySummary struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// DemandSummary aggregates requested quantities over pending requests only
type DemandSummary struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// TypeGap is the shortfall for one resource type where demand exceeds supply
type TypeGap struct {
	ResourceType string `json:"resource_type"`
	Supply       int    `json:"supply"`
	Demand       int    `json:"demand"`
	Gap          int    `json:"gap"`
}

// Analytics is the derived supply/demand picture for the operator dashboard
type Analytics struct {
	Supply         SupplySummary  `json:"supply"`
	Demand         DemandSummary  `json:"demand"`
	OffersByStatus map[string]int `json:"offers_by_status"`
	Gaps           []TypeGap      `json:"gaps"`
	MatchRate      int            `json:"match_rate"`
}

// ComputeAnalytics derives the supply/demand gap picture from offer and
// request snapshots. Pure function; no persistence or mutation. Negative
// quantities are ignored rather than allowed to corrupt the totals.
func ComputeAnalytics(offers []domain.AidOffer, requests []domain.ResourceRequest) Analytics {
	analytics := Analytics{
		Supply:         SupplySummary{ByType: make(map[string]int)},
		Demand:         DemandSummary{ByType: make(map[string]int)},
		OffersByStatus: make(map[string]int),
		Gaps:           []TypeGap{},
	}

	for _, offer := range offers {
		analytics.OffersByStatus[string(offer.Status)]++
		qty := offer.Quantity
		if qty < 0 {
			qty = 0
		}
		analytics.Supply.ByType[offer.ResourceType] += qty
		analytics.Supply.Total += qty
	}

	nonPending := 0
	for _, request := range requests {
		if request.Status != domain.RequestPending {
			nonPending++
			continue
		}
		qty := request.Quantity
		if qty < 0 {
			qty = 0
		}
		analytics.Demand.ByType[request.ResourceType] += qty
		analytics.Demand.Total += qty
	}

	for resourceType, demand := range analytics.Demand.ByType {
		supply := analytics.Supply.ByType[resourceType]
		if demand > supply {
			analytics.Gaps = append(analytics.Gaps, TypeGap{
				ResourceType: resourceType,
				Supply:       supply,
				Demand:       demand,
				Gap:          demand - supply,
			})
		}
	}
	sort.Slice(analytics.Gaps, func(i, j int) bool {
		return analytics.Gaps[i].ResourceType < analytics.Gaps[j].ResourceType
	})

	if len(requests) > 0 {
		analytics.MatchRate = int(math.Round(float64(nonPending) / float64(len(requests)) * 100.0))
	}

	return analytics
}

// Analytics reads fresh offer/request snapshots and derives the gap picture
func (e *Engine) Analytics(ctx context.Context) (*Analytics, error) {
	offers, err := e.store.GetAllOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load offers: %w", err)
	}
	requests, err := e.store.GetAllRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load requests: %w", err)
	}
	analytics := ComputeAnalytics(offers, requests)
	return &analytics, nil
}
