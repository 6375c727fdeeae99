package kinematics

import (
	"fmt"
	"math"
)

// ComputeCollision evaluates the meeting time of the two particles.
//
// In the opposite scenario the closing speed is SpeedA+SpeedB and a meeting
// always exists. In the same-direction scenario B trails A by InitialDistance
// and only catches up when it is strictly faster; otherwise the returned
// result carries no meeting time and the error is ErrNoCollision.
//
// Inputs whose meeting time, meeting point or playback extent cannot be
// represented as finite float64 values are rejected with ErrOutOfRange.
func ComputeCollision(in CollisionInput) (CollisionResult, error) {
	if err := in.Validate(); err != nil {
		return CollisionResult{}, err
	}

	var relative float64
	switch in.Scenario {
	case ScenarioSameDirection:
		relative = in.SpeedB - in.SpeedA
		if in.SpeedB <= in.SpeedA {
			return CollisionResult{RelativeSpeed: relative}, ErrNoCollision
		}
	default:
		relative = in.SpeedA + in.SpeedB
	}

	meetingTime := in.InitialDistance / relative
	meetingPoint := in.SpeedA * meetingTime

	if err := checkRange(in, relative, meetingTime, meetingPoint); err != nil {
		return CollisionResult{}, err
	}

	return CollisionResult{
		RelativeSpeed: relative,
		MeetingTime:   &meetingTime,
		MeetingPoint:  &meetingPoint,
	}, nil
}

// checkRange requires a positive finite meeting time and finite positions up
// to the end of playback, so every frame stays finite.
func checkRange(in CollisionInput, relative, meetingTime, meetingPoint float64) error {
	switch {
	case !finite(relative):
		return fmt.Errorf("%w: relative speed", ErrOutOfRange)
	case !finite(meetingTime) || meetingTime <= 0:
		return fmt.Errorf("%w: meeting time", ErrOutOfRange)
	case !finite(meetingPoint):
		return fmt.Errorf("%w: meeting point", ErrOutOfRange)
	}

	total := TotalTime(meetingTime)
	if !finite(total) {
		return fmt.Errorf("%w: playback time", ErrOutOfRange)
	}
	end := frameAt(in, total)
	if !finite(end.PositionA) || !finite(end.PositionB) {
		return fmt.Errorf("%w: playback extent", ErrOutOfRange)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
