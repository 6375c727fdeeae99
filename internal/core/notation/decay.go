package notation

import (
	"fmt"
	"math"
)

// DecayResult describes exponential decay after some elapsed time.
type DecayResult struct {
	HalfLife          float64 `json:"half_life"`
	ElapsedTime       float64 `json:"elapsed_time"`
	DecayConstant     float64 `json:"decay_constant"`
	FractionRemaining float64 `json:"fraction_remaining"`
	HalfLivesElapsed  float64 `json:"half_lives_elapsed"`
}

// Decay evaluates N/N₀ = exp(-λt) with λ = ln2 / halfLife.
func Decay(halfLife, elapsed float64) (DecayResult, error) {
	if !(halfLife > 0) || math.IsInf(halfLife, 1) {
		return DecayResult{}, fmt.Errorf("%w: half-life must be positive, got %v", ErrDomain, halfLife)
	}
	if !(elapsed >= 0) {
		return DecayResult{}, fmt.Errorf("%w: elapsed time must be non-negative, got %v", ErrDomain, elapsed)
	}

	lambda := math.Ln2 / halfLife
	return DecayResult{
		HalfLife:          halfLife,
		ElapsedTime:       elapsed,
		DecayConstant:     lambda,
		FractionRemaining: ExpOf(-lambda * elapsed),
		HalfLivesElapsed:  elapsed / halfLife,
	}, nil
}
