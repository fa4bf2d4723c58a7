package recommend

import (
	"context"
	"fmt"
	"slices"

	"github.com/aquapredict/aquapredict-go/internal/advisory"
	"github.com/aquapredict/aquapredict-go/internal/classifier"
	"github.com/aquapredict/aquapredict-go/internal/errors"
	"github.com/aquapredict/aquapredict-go/internal/logger"
	"github.com/aquapredict/aquapredict-go/internal/market"
)

// neutralPrice stands in for species the region has no price rows for
const neutralPrice = 1.0

// Score is the market-weighted score of one species
type Score struct {
	Species     string  `json:"species"`
	Probability float64 `json:"probability"`
	Price       Price   `json:"price"`
	Score       float64 `json:"score"`
}

// Recommendation is the best species to target in a region
type Recommendation struct {
	Region      string  `json:"region"`
	Recommended string  `json:"recommended"`
	Confidence  float64 `json:"confidence"`
	Price       Price   `json:"price"`
	Reason      string  `json:"reason"`
	// Unpriced lists species scored with the neutral price
	Unpriced []string `json:"unpriced,omitempty"`
	// Scores holds every species in class order
	Scores []Score `json:"-"`
}

// Recommend weighs the species distribution by regional price and returns
// the species with the best score
func (e *Engine) Recommend(ctx context.Context, req Request) (Recommendation, error) {
	in, dist, err := e.distribution(ctx, req)
	if err != nil {
		return Recommendation{}, err
	}

	prices := e.prices.PricesForRegion(in.Region)
	if len(prices) == 0 {
		return Recommendation{}, errors.New(&market.NoPriceDataError{Region: in.Region}).
			Component("recommend").
			Category(errors.CategoryNotFound).
			Context("region", in.Region).
			Build()
	}

	scores, unpriced, err := ScoreSpecies(dist, prices)
	if err != nil {
		return Recommendation{}, errors.New(err).
			Component("recommend").
			Category(errors.CategoryValidation).
			Context("region", in.Region).
			Build()
	}
	for _, species := range unpriced {
		e.log.Debug("species has no regional price, using neutral price",
			logger.String("region", in.Region),
			logger.String("species", species))
	}

	best := bestScore(scores)
	rec := Recommendation{
		Region:      in.Region,
		Recommended: best.Species,
		Confidence:  advisory.Round(best.Score, 3),
		Price:       best.Price,
		Reason:      fmt.Sprintf("%s has high abundance and strong market price in %s", best.Species, in.Region),
		Unpriced:    unpriced,
		Scores:      scores,
	}

	if e.observer != nil {
		e.observer.ObserveRecommendation(rec.Recommended, len(unpriced))
	}
	return rec, nil
}

// ScoreSpecies scores each species of dist as probability times its price
// relative to the region's highest price. Species without a price use the
// neutral price 1 and are returned in unpriced.
func ScoreSpecies(dist classifier.Distribution, prices map[string]float64) (scores []Score, unpriced []string, err error) {
	if len(dist) == 0 {
		return nil, nil, fmt.Errorf("empty species distribution")
	}
	if len(prices) == 0 {
		return nil, nil, fmt.Errorf("no prices to score against")
	}
	maxPrice := 0.0
	for _, p := range prices {
		maxPrice = max(maxPrice, p)
	}
	if maxPrice <= 0 {
		return nil, nil, fmt.Errorf("highest regional price is %v, cannot scale scores", maxPrice)
	}

	scores = make([]Score, 0, len(dist))
	for _, sp := range dist {
		s := Score{Species: sp.Species, Probability: sp.Probability}
		price, ok := prices[sp.Species]
		if ok {
			s.Price = KnownPrice(price)
		} else {
			price = neutralPrice
			unpriced = append(unpriced, sp.Species)
		}
		s.Score = sp.Probability * (price / maxPrice)
		scores = append(scores, s)
	}
	return scores, unpriced, nil
}

// bestScore returns the first strict maximum in class order
func bestScore(scores []Score) Score {
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best
}

// Ranked returns the scores sorted best first, ties in class order
func (r Recommendation) Ranked() []Score {
	out := slices.Clone(r.Scores)
	slices.SortStableFunc(out, func(a, b Score) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return out
}
