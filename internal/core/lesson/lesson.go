// Package lesson carries the reference data shown next to the collider:
// slider ranges, default values and the powers-of-ten practice problems.
package lesson

import (
	"errors"
	"fmt"

	"github.com/zeusync/mathcraft/internal/core/kinematics"
	"github.com/zeusync/mathcraft/internal/core/notation"
)

var ErrOutOfRange = errors.New("value outside lesson range")

// Range is a closed numeric interval.
type Range struct {
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Default float64 `json:"default" yaml:"default"`
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Bounds are the ranges the presentation layer offers for each input.
type Bounds struct {
	SpeedA   Range `json:"speed_a" yaml:"speed_a"`
	SpeedB   Range `json:"speed_b" yaml:"speed_b"`
	Distance Range `json:"distance" yaml:"distance"`
}

// DefaultBounds mirrors the classroom sliders.
func DefaultBounds() Bounds {
	return Bounds{
		SpeedA:   Range{Min: 1, Max: 1_000_000, Default: 100_000},
		SpeedB:   Range{Min: 1, Max: 1_000_000, Default: 200_000},
		Distance: Range{Min: 100, Max: 10_000_000, Default: 1_000_000},
	}
}

// DefaultInput returns the slider defaults as an input.
func (b Bounds) DefaultInput(scenario kinematics.Scenario) kinematics.CollisionInput {
	return kinematics.CollisionInput{
		SpeedA:          b.SpeedA.Default,
		SpeedB:          b.SpeedB.Default,
		InitialDistance: b.Distance.Default,
		Scenario:        scenario,
	}
}

// Check reports ErrOutOfRange when in falls outside the bounds.
func (b Bounds) Check(in kinematics.CollisionInput) error {
	switch {
	case !b.SpeedA.Contains(in.SpeedA):
		return fmt.Errorf("%w: speed_a %v not in [%v, %v]", ErrOutOfRange, in.SpeedA, b.SpeedA.Min, b.SpeedA.Max)
	case !b.SpeedB.Contains(in.SpeedB):
		return fmt.Errorf("%w: speed_b %v not in [%v, %v]", ErrOutOfRange, in.SpeedB, b.SpeedB.Min, b.SpeedB.Max)
	case !b.Distance.Contains(in.InitialDistance):
		return fmt.Errorf("%w: initial_distance %v not in [%v, %v]", ErrOutOfRange, in.InitialDistance, b.Distance.Min, b.Distance.Max)
	}
	return nil
}

// Validate checks that every range is well formed.
func (b Bounds) Validate() error {
	for name, r := range map[string]Range{"speed_a": b.SpeedA, "speed_b": b.SpeedB, "distance": b.Distance} {
		if !(r.Min > 0) || r.Max < r.Min || !r.Contains(r.Default) {
			return fmt.Errorf("%w: bad %s range [%v, %v] default %v", ErrOutOfRange, name, r.Min, r.Max, r.Default)
		}
	}
	return nil
}

// Problem is one powers-of-ten exercise.
type Problem struct {
	Prompt string               `json:"prompt"`
	Value  float64              `json:"value"`
	Unit   string               `json:"unit"`
	Answer notation.SciNotation `json:"answer"`
	Text   string               `json:"answer_text"`
}

type problemSpec struct {
	prompt    string
	value     float64
	unit      string
	precision int
}

var practice = []problemSpec{
	{prompt: "Speed of light", value: 299_792_458, unit: "m/s", precision: 4},
	{prompt: "Diameter of an atom", value: 0.0000001, unit: "m", precision: 0},
	{prompt: "Earth-Sun distance", value: 149_600_000, unit: "km", precision: 3},
}

// PracticeProblems returns the exercises with their answers.
func PracticeProblems() []Problem {
	out := make([]Problem, 0, len(practice))
	for _, p := range practice {
		sci, err := notation.Scientific(p.value)
		if err != nil {
			continue
		}
		out = append(out, Problem{
			Prompt: p.prompt,
			Value:  p.value,
			Unit:   p.unit,
			Answer: sci,
			Text:   sci.Format(p.precision) + " " + p.unit,
		})
	}
	return out
}
