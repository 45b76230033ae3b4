package services

import (
	"math"
	"sort"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
)

// RankingService orders provider results under an OrderProfile. Scoring is
// a pure function: equal inputs always produce the identical order.
type RankingService struct{}

// NewRankingService creates a ranking service after validating the
// profile table.
func NewRankingService() (*RankingService, error) {
	if err := ValidateOrderProfiles(); err != nil {
		return nil, err
	}
	return &RankingService{}, nil
}

// Rank scores and sorts places under the given profile.
func (s *RankingService) Rank(places []*entities.Place, profile entities.OrderProfile) []entities.RankedPlace {
	if len(places) == 0 {
		return nil
	}

	ranked := make([]entities.RankedPlace, len(places))
	for i, p := range places {
		score, breakdown := scorePlace(p, profile.Weights)
		ranked[i] = entities.RankedPlace{
			Place:          p,
			Score:          score,
			ScoreBreakdown: breakdown,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Place.ReviewCount != ranked[j].Place.ReviewCount {
			return ranked[i].Place.ReviewCount > ranked[j].Place.ReviewCount
		}
		return ranked[i].Place.ID < ranked[j].Place.ID
	})

	return ranked
}

func scorePlace(p *entities.Place, w entities.OrderWeights) (float64, map[string]float64) {
	breakdown := map[string]float64{
		"rating":   ratingScore(p) * float64(w.Rating),
		"reviews":  reviewScore(p) * float64(w.Reviews),
		"price":    priceScore(p) * float64(w.Price),
		"open_now": openNowScore(p) * float64(w.OpenNow),
		"distance": distanceScore(p) * float64(w.Distance),
	}

	total := 0.0
	for _, v := range breakdown {
		total += v
	}
	return total, breakdown
}

func ratingScore(p *entities.Place) float64 {
	if p.Rating <= 0 {
		return 0.5
	}
	return math.Min(p.Rating/5.0, 1.0)
}

func reviewScore(p *entities.Place) float64 {
	if p.ReviewCount <= 0 {
		return 0
	}
	// log scale: ~0.25 at 10, ~0.5 at 100, 1.0 at 10000+
	return math.Min(math.Log10(float64(p.ReviewCount)+1)/4.0, 1.0)
}

func priceScore(p *entities.Place) float64 {
	if p.PriceLevel <= 0 {
		return 0.5
	}
	// Cheaper is better: level 1 scores 1.0, level 4 scores 0.0
	return 1.0 - float64(p.PriceLevel-1)/3.0
}

func openNowScore(p *entities.Place) float64 {
	if p.OpenNow == nil {
		return 0.5
	}
	if *p.OpenNow {
		return 1.0
	}
	return 0.0
}

func distanceScore(p *entities.Place) float64 {
	if p.DistanceKm <= 0 {
		return 0.5
	}
	// decay: 1.0 at 0km, 0.5 at 2km
	return 1.0 / (1.0 + p.DistanceKm/2.0)
}
