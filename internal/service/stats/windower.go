// Package stats builds timezone-correct daily statistics series and maturity
// histograms from review logs and due dates. It is read-only: it consumes
// the same card and review-log data as the health synchronizer but never
// triggers a sync itself.
package stats

import (
	"time"

	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/store"
)

// DefaultWindowDays is the length of the past and future series most
// callers want.
const DefaultWindowDays = 30

// dayKeyLayout is the canonical calendar-day format. Its lexicographic
// order matches chronological order, which the overdue folding relies on.
const dayKeyLayout = "2006-01-02"

// Review-state maturity thresholds, in scheduled days. 21 days is the
// conventional young/mature boundary; 90 marks long-stable cards.
const (
	matureDays = 21
	stableDays = 90
)

// DailyPoint is one entry of a fixed-length daily series. Date is the
// start-of-day instant of its calendar day in the window's timezone, so
// across a daylight-saving transition consecutive Dates are not exactly
// 24 hours apart even though they are consecutive local days.
type DailyPoint struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// MaturityBucket is a discrete maturity category a card is classified into.
// Buckets are ordered: a card's bucket is a monotonic function of its state
// and scheduled interval.
type MaturityBucket int

const (
	// BucketNew holds cards that have never been reviewed.
	BucketNew MaturityBucket = iota
	// BucketLearning holds cards in the learning or relearning steps.
	BucketLearning
	// BucketYoung holds review-state cards scheduled under 21 days out.
	BucketYoung
	// BucketMature holds review-state cards scheduled 21 to 89 days out.
	BucketMature
	// BucketStable holds review-state cards scheduled 90 or more days out.
	BucketStable
)

// String returns the bucket's display name.
func (b MaturityBucket) String() string {
	switch b {
	case BucketNew:
		return "new"
	case BucketLearning:
		return "learning"
	case BucketYoung:
		return "young"
	case BucketMature:
		return "mature"
	case BucketStable:
		return "stable"
	default:
		return "unknown"
	}
}

// ToSparseDailyCounts collapses grouped (day, count) rows into a map keyed
// by canonical YYYY-MM-DD strings. The upstream query groups by day, so
// duplicate keys are not expected; if one appears anyway the counts are
// summed rather than silently dropped.
func ToSparseDailyCounts(counts []store.DailyCount) map[string]int {
	sparse := make(map[string]int, len(counts))
	for _, c := range counts {
		sparse[c.Day] += c.Count
	}
	return sparse
}

// PastWindow produces length consecutive daily entries ending at and
// including referenceInstant's calendar day in loc. Each entry's Date is
// that day's local start-of-day instant; counts default to 0 for days
// absent from sparse.
func PastWindow(
	loc *time.Location,
	referenceInstant time.Time,
	sparse map[string]int,
	length int,
) []DailyPoint {
	today := startOfDay(referenceInstant, loc)

	window := make([]DailyPoint, 0, length)
	for i := length - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		window = append(window, DailyPoint{
			Date:  day,
			Count: sparse[day.Format(dayKeyLayout)],
		})
	}
	return window
}

// FutureWindow produces length consecutive daily entries starting at
// referenceInstant's calendar day in loc. Counts for day keys strictly
// earlier than today are folded into the first bucket: an overdue card is
// presented immediately, not on its original scheduled date. Keys beyond
// the window are ignored.
func FutureWindow(
	loc *time.Location,
	referenceInstant time.Time,
	sparse map[string]int,
	length int,
) []DailyPoint {
	today := startOfDay(referenceInstant, loc)
	todayKey := today.Format(dayKeyLayout)

	window := make([]DailyPoint, 0, length)
	for i := 0; i < length; i++ {
		day := today.AddDate(0, 0, i)
		window = append(window, DailyPoint{
			Date:  day,
			Count: sparse[day.Format(dayKeyLayout)],
		})
	}

	if length == 0 {
		return window
	}
	for key, count := range sparse {
		if key < todayKey {
			window[0].Count += count
		}
	}
	return window
}

// MaturityHistogram assigns every card to exactly one maturity bucket and
// counts membership. The sum of all counts equals the number of cards
// given; callers pass only the cards they mean to count (the store's
// active-card queries already exclude soft-deleted ones).
func MaturityHistogram(cards []*domain.Card) map[MaturityBucket]int {
	histogram := make(map[MaturityBucket]int)
	for _, card := range cards {
		histogram[bucketFor(card.State, card.ScheduledDays)]++
	}
	return histogram
}

// bucketFor maps (state, scheduledDays) onto a bucket. Total and monotonic:
// every valid combination lands in exactly one bucket, and longer scheduled
// intervals never map to an earlier bucket.
func bucketFor(state domain.CardState, scheduledDays int) MaturityBucket {
	switch state {
	case domain.CardStateNew:
		return BucketNew
	case domain.CardStateLearning, domain.CardStateRelearning:
		return BucketLearning
	default: // review
		switch {
		case scheduledDays < matureDays:
			return BucketYoung
		case scheduledDays < stableDays:
			return BucketMature
		default:
			return BucketStable
		}
	}
}

// startOfDay returns midnight of t's calendar day in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
