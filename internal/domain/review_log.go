package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Rating represents the user's assessment of recall quality for one review.
type Rating string

// Possible rating values
const (
	RatingAgain Rating = "again"
	RatingHard  Rating = "hard"
	RatingGood  Rating = "good"
	RatingEasy  Rating = "easy"
)

// Review log validation errors
var (
	// ErrReviewLogIDEmpty is returned when a review log ID is empty or nil.
	ErrReviewLogIDEmpty = errors.New("review log ID cannot be empty")

	// ErrReviewLogCardIDEmpty is returned when a review log's card ID is empty or nil.
	ErrReviewLogCardIDEmpty = errors.New("review log card ID cannot be empty")

	// ErrReviewLogAccountIDEmpty is returned when a review log's account ID is empty or nil.
	ErrReviewLogAccountIDEmpty = errors.New("review log account ID cannot be empty")

	// ErrInvalidRating is returned when a rating is not a known Rating value.
	ErrInvalidRating = errors.New("invalid rating")
)

// ReviewLog is an immutable, append-only record of a single card review.
// It snapshots the memory state that resulted from the review so that
// statistics can be rebuilt from logs alone. Logs are never mutated or
// deleted, even when the owning card is later soft-deleted; they remain the
// permanent source of truth for the statistics windower.
type ReviewLog struct {
	ID         uuid.UUID `json:"id"`
	CardID     uuid.UUID `json:"card_id"`
	AccountID  uuid.UUID `json:"account_id"`
	Rating     Rating    `json:"rating"`
	ReviewedAt time.Time `json:"reviewed_at"`
	Answer     string    `json:"answer"` // the user's free-text answer attempt

	// Snapshot of the memory state produced by this review.
	Due             time.Time `json:"due"`
	Stability       float64   `json:"stability"`
	Difficulty      float64   `json:"difficulty"`
	ElapsedDays     int       `json:"elapsed_days"`
	LastElapsedDays int       `json:"last_elapsed_days"`
	ScheduledDays   int       `json:"scheduled_days"`
	State           CardState `json:"state"`
}

// Validate checks if the ReviewLog has valid data.
// Returns an error if any field fails validation.
func (l *ReviewLog) Validate() error {
	if l.ID == uuid.Nil {
		return ErrReviewLogIDEmpty
	}

	if l.CardID == uuid.Nil {
		return ErrReviewLogCardIDEmpty
	}

	if l.AccountID == uuid.Nil {
		return ErrReviewLogAccountIDEmpty
	}

	if !IsValidRating(l.Rating) {
		return ErrInvalidRating
	}

	if !IsValidCardState(l.State) {
		return ErrCardStateInvalid
	}

	return nil
}

// IsValidRating checks if the given rating is a known Rating value.
func IsValidRating(rating Rating) bool {
	switch rating {
	case RatingAgain, RatingHard, RatingGood, RatingEasy:
		return true
	default:
		return false
	}
}
