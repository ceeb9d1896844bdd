package srs

import (
	"math"

	"github.com/mnemo-app/mnemo/internal/domain"
)

// ratingOrdinal maps ratings onto the 1..4 grade scale the FSRS formulas
// are expressed in.
var ratingOrdinal = map[domain.Rating]float64{
	domain.RatingAgain: 1,
	domain.RatingHard:  2,
	domain.RatingGood:  3,
	domain.RatingEasy:  4,
}

// initStability returns the initial stability S0(G) for a card's first
// review with grade G.
func initStability(p *Params, rating domain.Rating) float64 {
	return clampStability(p.W[int(ratingOrdinal[rating])-1])
}

// initDifficulty returns the initial difficulty for a card's first review.
// D0(G) = w[4] - e^(w[5] * (G - 1)) + 1, clamped to [1, 10].
func initDifficulty(p *Params, rating domain.Rating) float64 {
	g := ratingOrdinal[rating]
	return clampDifficulty(p.W[4] - math.Exp(p.W[5]*(g-1)) + 1)
}

// nextDifficulty computes the updated difficulty after a review, applying
// linear damping toward the extremes and mean reversion toward D0(Easy).
func nextDifficulty(p *Params, difficulty float64, rating domain.Rating) float64 {
	g := ratingOrdinal[rating]
	deltaD := -p.W[6] * (g - 3)
	damped := difficulty + deltaD*(10-difficulty)/9
	d0Easy := p.W[4] - math.Exp(p.W[5]*3) + 1 // unclamped mean-reversion target
	return clampDifficulty(p.W[7]*d0Easy + (1-p.W[7])*damped)
}

// nextRecallStability computes stability after a successful recall
// (Hard/Good/Easy):
//
//	S' = S * (1 + e^w[8] * (11-D) * S^(-w[9]) * (e^((1-R)*w[10]) - 1) * hardPenalty * easyBonus)
func nextRecallStability(p *Params, difficulty, stability, retrievability float64, rating domain.Rating) float64 {
	hardPenalty := 1.0
	if rating == domain.RatingHard {
		hardPenalty = p.W[15]
	}
	easyBonus := 1.0
	if rating == domain.RatingEasy {
		easyBonus = p.W[16]
	}

	grow := math.Exp(p.W[8]) *
		(11 - difficulty) *
		math.Pow(stability, -p.W[9]) *
		(math.Exp((1-retrievability)*p.W[10]) - 1) *
		hardPenalty * easyBonus

	return clampStability(stability * (1 + grow))
}

// nextForgetStability computes stability after a lapse (Again):
//
//	S' = w[11] * D^(-w[12]) * ((S+1)^w[13] - 1) * e^((1-R)*w[14])
//
// The result never exceeds the pre-lapse stability.
func nextForgetStability(p *Params, difficulty, stability, retrievability float64) float64 {
	s := p.W[11] *
		math.Pow(difficulty, -p.W[12]) *
		(math.Pow(stability+1, p.W[13]) - 1) *
		math.Exp((1-retrievability)*p.W[14])

	return clampStability(math.Min(s, stability))
}

// nextInterval converts a stability into a scheduled interval in days:
//
//	I = (S / Factor) * (r^(1/Decay) - 1)
//
// rounded and clamped to [1, MaximumInterval].
func nextInterval(p *Params, stability float64) int {
	ivl := stability / Factor * (math.Pow(p.DesiredRetention, 1/Decay) - 1)
	days := int(math.Round(ivl))
	if days < 1 {
		days = 1
	}
	if days > p.MaximumInterval {
		days = p.MaximumInterval
	}
	return days
}

// clampStability keeps stability strictly positive.
func clampStability(s float64) float64 {
	return math.Max(s, 0.001)
}

// clampDifficulty keeps difficulty within [1, 10].
func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}
