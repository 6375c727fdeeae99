package notation

import (
	"fmt"
	"math"
)

// LogAnalysis holds both logarithms of a positive value.
type LogAnalysis struct {
	Value      float64 `json:"value"`
	Log10      float64 `json:"log10"`
	NaturalLog float64 `json:"natural_log"`
}

// Log10Of returns log₁₀(x). Non-positive x is a domain error.
func Log10Of(x float64) (float64, error) {
	if !(x > 0) {
		return 0, fmt.Errorf("%w: log10 of %v", ErrDomain, x)
	}
	return math.Log10(x), nil
}

// NaturalLogOf returns ln(x). Non-positive x is a domain error.
func NaturalLogOf(x float64) (float64, error) {
	if !(x > 0) {
		return 0, fmt.Errorf("%w: ln of %v", ErrDomain, x)
	}
	return math.Log(x), nil
}

// ExpOf returns eˣ. It overflows to +Inf for large x; callers clamp for display.
func ExpOf(x float64) float64 {
	return math.Exp(x)
}

// Analyze computes both logarithms of x.
func Analyze(x float64) (LogAnalysis, error) {
	lg, err := Log10Of(x)
	if err != nil {
		return LogAnalysis{}, err
	}
	ln, err := NaturalLogOf(x)
	if err != nil {
		return LogAnalysis{}, err
	}
	return LogAnalysis{Value: x, Log10: lg, NaturalLog: ln}, nil
}
