package kinematics

import "errors"

// Simulation bundles one scenario with its outcome and frames.
type Simulation struct {
	Input  CollisionInput   `json:"input"`
	Result CollisionResult  `json:"result"`
	Frames []AnimationFrame `json:"frames"`
}

// Simulate runs ComputeCollision and, when the particles meet, collects the
// animation frames. A no-collision outcome returns the partial simulation
// together with ErrNoCollision.
func Simulate(in CollisionInput, maxFrames int) (Simulation, error) {
	sim := Simulation{Input: in, Frames: []AnimationFrame{}}

	result, err := ComputeCollision(in)
	sim.Result = result
	if err != nil {
		if errors.Is(err, ErrNoCollision) {
			return sim, err
		}
		return Simulation{}, err
	}

	sim.Frames = Frames(in, *result.MeetingTime, maxFrames)
	return sim, nil
}
