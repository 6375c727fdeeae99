package kinematics

import (
	"fmt"
	"math"
	"strings"
)

// Scenario describes how the two particles move relative to each other
type Scenario uint8

const (
	// ScenarioOpposite launches A from the left and B from the right, toward each other.
	ScenarioOpposite Scenario = iota
	// ScenarioSameDirection launches both particles from the origin heading right.
	ScenarioSameDirection
)

func (s Scenario) String() string {
	switch s {
	case ScenarioOpposite:
		return "opposite"
	case ScenarioSameDirection:
		return "same_direction"
	default:
		return fmt.Sprintf("scenario(%d)", uint8(s))
	}
}

// ParseScenario accepts the canonical names as well as the lesson labels.
func ParseScenario(s string) (Scenario, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "opposite", "opposite directions", "opposite_directions":
		return ScenarioOpposite, nil
	case "same", "same_direction", "same direction":
		return ScenarioSameDirection, nil
	default:
		return 0, fmt.Errorf("%w: unknown scenario %q", ErrInvalidInput, s)
	}
}

func (s Scenario) MarshalText() ([]byte, error) {
	switch s {
	case ScenarioOpposite, ScenarioSameDirection:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("%w: unknown scenario %d", ErrInvalidInput, uint8(s))
	}
}

func (s *Scenario) UnmarshalText(text []byte) error {
	parsed, err := ParseScenario(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CollisionInput holds the explicit parameters of one scenario. Speeds are in
// m/s and the distance is in meters.
type CollisionInput struct {
	SpeedA          float64  `json:"speed_a" yaml:"speed_a"`
	SpeedB          float64  `json:"speed_b" yaml:"speed_b"`
	InitialDistance float64  `json:"initial_distance" yaml:"initial_distance"`
	Scenario        Scenario `json:"scenario" yaml:"scenario"`
}

// Validate reports ErrInvalidInput unless speeds and distance are strictly
// positive finite numbers.
func (in CollisionInput) Validate() error {
	if !positiveFinite(in.SpeedA) {
		return fmt.Errorf("%w: speed_a must be positive, got %v", ErrInvalidInput, in.SpeedA)
	}
	if !positiveFinite(in.SpeedB) {
		return fmt.Errorf("%w: speed_b must be positive, got %v", ErrInvalidInput, in.SpeedB)
	}
	if !positiveFinite(in.InitialDistance) {
		return fmt.Errorf("%w: initial_distance must be positive, got %v", ErrInvalidInput, in.InitialDistance)
	}
	if in.Scenario != ScenarioOpposite && in.Scenario != ScenarioSameDirection {
		return fmt.Errorf("%w: unknown scenario %d", ErrInvalidInput, uint8(in.Scenario))
	}
	return nil
}

// CollisionResult is the outcome of ComputeCollision. MeetingTime and
// MeetingPoint are nil when the particles never meet.
type CollisionResult struct {
	RelativeSpeed float64  `json:"relative_speed"`
	MeetingTime   *float64 `json:"meeting_time,omitempty"`
	MeetingPoint  *float64 `json:"meeting_point,omitempty"`
}

// Collides reports whether a meeting time exists.
func (r CollisionResult) Collides() bool {
	return r.MeetingTime != nil
}

// AnimationFrame is one sample of both particle positions.
type AnimationFrame struct {
	TimeSec   float64 `json:"time_sec"`
	PositionA float64 `json:"position_a"`
	PositionB float64 `json:"position_b"`
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
