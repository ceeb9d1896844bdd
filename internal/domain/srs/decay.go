package srs

import (
	"math"
	"time"
)

// Forgetting-curve constants published by the FSRS memory model. They are
// fixed properties of that model, not tunable parameters of this engine:
// Factor is chosen so that retrievability is exactly 0.9 when the elapsed
// time equals the card's stability.
const (
	// Decay is the exponent of the forgetting curve.
	Decay = -0.5

	// Factor scales elapsed time relative to stability. 19/81 == 0.9^(1/Decay) - 1.
	Factor = 19.0 / 81.0
)

// hoursPerDay converts between instants and the fractional day counts the
// forgetting curve is expressed in.
const hoursPerDay = 24.0

// Retrievability computes the probability, in [0, 1], that a card with the
// given stability is still recallable at the anchor instant, per the
// forgetting curve R = (1 + Factor * t / S) ^ Decay where t is the
// (fractional) number of days between the anchor and the last review (or the
// card's creation instant for state seeded at import time).
//
// An anchor at or before the reference instant yields 1: a card cannot be
// more than fully retrievable. Callers are responsible for excluding cards
// without a defined stability; those have no meaningful decay value.
func Retrievability(stability float64, lastReviewOrCreatedAt, anchor time.Time) float64 {
	elapsed := ElapsedDays(lastReviewOrCreatedAt, anchor)
	return RetrievabilityAfter(stability, elapsed)
}

// RetrievabilityAfter computes retrievability after elapsedDays (possibly
// fractional) days, clamped to [0, 1].
func RetrievabilityAfter(stability, elapsedDays float64) float64 {
	if elapsedDays <= 0 {
		return 1
	}

	r := math.Pow(1+Factor*elapsedDays/stability, Decay)

	// The formula itself stays within (0, 1] for valid inputs; the clamp
	// guards against degenerate stored stability values.
	return math.Min(math.Max(r, 0), 1)
}

// ElapsedDays returns the fractional number of days between from and to,
// never negative.
func ElapsedDays(from, to time.Time) float64 {
	days := to.Sub(from).Hours() / hoursPerDay
	if days < 0 {
		return 0
	}
	return days
}
