package srs

import "errors"

// Parameter validation errors
var (
	ErrInvalidRetention   = errors.New("desired retention must be in (0, 1)")
	ErrInvalidMaxInterval = errors.New("maximum interval must be at least 1 day")
)

// Params defines the configurable parameters of the default memory model.
//
// W holds the 17 FSRS weights. The published default weights are a
// reasonable starting point; deployments that optimize weights per account
// can construct Params with their own values.
type Params struct {
	W [17]float64

	// DesiredRetention is the retrievability the scheduler aims for at the
	// next review (0.9 means cards come back when recall drops to 90%).
	DesiredRetention float64

	// MaximumInterval caps scheduled intervals, in days.
	MaximumInterval int

	// RelearnMinutes is how soon a failed card is shown again, in minutes.
	RelearnMinutes int
}

// NewDefaultParams creates a new Params instance with the published default
// FSRS weights, 90% desired retention, a 100-year interval cap, and a
// ten-minute relearning step.
func NewDefaultParams() *Params {
	return &Params{
		W: [17]float64{
			0.4872, 1.4003, 3.7145, 13.8206, 5.1618, 1.2298, 0.8975,
			0.0310, 1.6474, 0.1367, 1.0461, 2.1072, 0.0793, 0.3246,
			1.5870, 0.2272, 2.8755,
		},
		DesiredRetention: 0.9,
		MaximumInterval:  36500,
		RelearnMinutes:   10,
	}
}

// Validate checks that the parameters are usable.
func (p *Params) Validate() error {
	if p.DesiredRetention <= 0 || p.DesiredRetention >= 1 {
		return ErrInvalidRetention
	}

	if p.MaximumInterval < 1 {
		return ErrInvalidMaxInterval
	}

	return nil
}
