package notation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SciNotation is a value written as Mantissa × 10^Exponent with
// 1 ≤ |Mantissa| < 10, or the zero value for 0.
type SciNotation struct {
	Value    float64 `json:"value"`
	Mantissa float64 `json:"mantissa"`
	Exponent int     `json:"exponent"`
}

// Scientific splits x into mantissa and exponent using the shortest exact
// decimal representation of x.
func Scientific(x float64) (SciNotation, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return SciNotation{}, fmt.Errorf("%w: no scientific form for %v", ErrDomain, x)
	}
	if x == 0 {
		return SciNotation{}, nil
	}
	m, e, err := splitE(strconv.FormatFloat(x, 'e', -1, 64))
	if err != nil {
		return SciNotation{}, err
	}
	return SciNotation{Value: x, Mantissa: m, Exponent: e}, nil
}

// E formats the value in E notation, e.g. "3.33e+00". A negative precision
// uses the fewest digits that represent the value exactly.
func (s SciNotation) E(precision int) string {
	return strconv.FormatFloat(s.Value, 'e', precision, 64)
}

// Format renders the value as "m × 10^e" with the mantissa rounded to the
// given number of decimals.
func (s SciNotation) Format(precision int) string {
	if s.Value == 0 {
		return "0 × 10^0"
	}
	mantissa, exponent, _ := strings.Cut(s.E(precision), "e")
	e, err := strconv.Atoi(exponent)
	if err != nil {
		return s.E(precision)
	}
	return fmt.Sprintf("%s × 10^%d", mantissa, e)
}

func (s SciNotation) String() string {
	return s.Format(-1)
}

func splitE(formatted string) (float64, int, error) {
	mantissa, exponent, ok := strings.Cut(formatted, "e")
	if !ok {
		return 0, 0, fmt.Errorf("%w: malformed exponent form %q", ErrDomain, formatted)
	}
	m, err := strconv.ParseFloat(mantissa, 64)
	if err != nil {
		return 0, 0, err
	}
	e, err := strconv.Atoi(exponent)
	if err != nil {
		return 0, 0, err
	}
	return m, e, nil
}
