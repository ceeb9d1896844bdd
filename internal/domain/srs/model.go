package srs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo/internal/domain"
)

// Common errors
var (
	ErrNilCard        = errors.New("card cannot be nil")
	ErrInvalidRating  = errors.New("invalid rating")
	ErrCardNotScoring = errors.New("card state does not admit scoring")
)

// MemoryModel computes a card's next memory state from a review. It is the
// pluggable collaborator the health engine consumes as a black box: given
// the current state, a rating, and the review instant, it returns the
// updated state and the append-only log entry snapshotting it. Neither
// value aliases the input; implementations follow the immutable update
// pattern and never persist anything themselves.
type MemoryModel interface {
	// Next computes the post-review memory state and its log entry.
	// The returned card is a modified copy of the input; the input is not
	// mutated. The log entry's Answer field is left empty for the caller
	// to fill in.
	Next(card *domain.Card, rating domain.Rating, now time.Time) (*domain.Card, *domain.ReviewLog, error)
}

// defaultModel is the standard MemoryModel implementation, an FSRS scheduler
// with a single ten-minute (re)learning step.
type defaultModel struct {
	params *Params
}

// NewDefaultModel creates a MemoryModel with the default parameters.
func NewDefaultModel() MemoryModel {
	return &defaultModel{params: NewDefaultParams()}
}

// NewModelWithParams creates a MemoryModel with custom parameters.
func NewModelWithParams(params *Params) (MemoryModel, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultModel{params: params}, nil
}

// Next implements MemoryModel.
func (m *defaultModel) Next(
	card *domain.Card,
	rating domain.Rating,
	now time.Time,
) (*domain.Card, *domain.ReviewLog, error) {
	// Validate inputs
	if card == nil {
		return nil, nil, ErrNilCard
	}

	if !domain.IsValidRating(rating) {
		return nil, nil, ErrInvalidRating
	}

	next := cloneCard(card)

	// Whole days since the previous review; 0 for a first review.
	elapsed := 0
	if card.LastReviewedAt != nil {
		elapsed = int(ElapsedDays(*card.LastReviewedAt, now))
	}
	lastElapsed := card.ElapsedDays

	var stability, difficulty float64
	if card.Reviewed() {
		// Retrievability of the old state at the review instant drives the
		// stability update.
		r := Retrievability(*card.Stability, *card.LastReviewedAt, now)
		difficulty = nextDifficulty(m.params, *card.Difficulty, rating)
		if rating == domain.RatingAgain {
			stability = nextForgetStability(m.params, *card.Difficulty, *card.Stability, r)
		} else {
			stability = nextRecallStability(m.params, *card.Difficulty, *card.Stability, r, rating)
		}
	} else {
		stability = initStability(m.params, rating)
		difficulty = initDifficulty(m.params, rating)
	}

	next.Stability = &stability
	next.Difficulty = &difficulty

	// State transition and scheduling.
	switch card.State {
	case domain.CardStateNew, domain.CardStateLearning, domain.CardStateRelearning:
		switch rating {
		case domain.RatingAgain:
			if card.State == domain.CardStateNew {
				next.State = domain.CardStateLearning
			}
			next.ScheduledDays = 0
			next.Due = now.Add(time.Duration(m.params.RelearnMinutes) * time.Minute)
		case domain.RatingHard:
			if card.State == domain.CardStateNew {
				next.State = domain.CardStateLearning
			}
			next.ScheduledDays = 1
			next.Due = now.AddDate(0, 0, 1)
		default: // Good, Easy: graduate to the review cycle
			next.State = domain.CardStateReview
			ivl := nextInterval(m.params, stability)
			next.ScheduledDays = ivl
			next.Due = now.AddDate(0, 0, ivl)
		}
	case domain.CardStateReview:
		if rating == domain.RatingAgain {
			next.State = domain.CardStateRelearning
			next.Lapses++
			next.ScheduledDays = 0
			next.Due = now.Add(time.Duration(m.params.RelearnMinutes) * time.Minute)
		} else {
			ivl := nextInterval(m.params, stability)
			next.ScheduledDays = ivl
			next.Due = now.AddDate(0, 0, ivl)
		}
	default:
		return nil, nil, ErrCardNotScoring
	}

	reviewedAt := now
	next.ElapsedDays = elapsed
	next.Reps++
	next.LastReviewedAt = &reviewedAt
	next.UpdatedAt = now

	// A just-reviewed card is at full recall; the synchronizer enforces the
	// same invariant on the write path.
	one := 1.0
	next.Retrievability = &one

	log := &domain.ReviewLog{
		ID:              uuid.New(),
		CardID:          card.ID,
		AccountID:       card.AccountID,
		Rating:          rating,
		ReviewedAt:      now,
		Due:             next.Due,
		Stability:       stability,
		Difficulty:      difficulty,
		ElapsedDays:     elapsed,
		LastElapsedDays: lastElapsed,
		ScheduledDays:   next.ScheduledDays,
		State:           next.State,
	}

	return next, log, nil
}

// cloneCard returns a deep copy of the card. Pointer fields are copied by value.
func cloneCard(c *domain.Card) *domain.Card {
	out := *c
	if c.Stability != nil {
		v := *c.Stability
		out.Stability = &v
	}
	if c.Difficulty != nil {
		v := *c.Difficulty
		out.Difficulty = &v
	}
	if c.Retrievability != nil {
		v := *c.Retrievability
		out.Retrievability = &v
	}
	if c.LastReviewedAt != nil {
		v := *c.LastReviewedAt
		out.LastReviewedAt = &v
	}
	if c.DeletedAt != nil {
		v := *c.DeletedAt
		out.DeletedAt = &v
	}
	return &out
}
