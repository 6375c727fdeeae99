package kinematics

import (
	"iter"
	"math"
)

const (
	// DefaultMaxFrames caps a frame sequence when the caller passes no limit.
	DefaultMaxFrames = 50
	// MaxFramesLimit is the hard upper bound on frames per sequence.
	MaxFramesLimit = 1000

	// overshoot extends playback past the meeting time so the crossing is visible.
	overshoot = 1.1
	// samplesPerSecond is the nominal sampling rate before the frame cap applies.
	samplesPerSecond = 10
)

// TotalTime returns the playback duration for the given meeting time.
func TotalTime(meetingTime float64) float64 {
	return meetingTime * overshoot
}

// FrameCount returns how many frames GenerateAnimationFrames yields.
func FrameCount(meetingTime float64, maxFrames int) int {
	maxFrames = clampMaxFrames(maxFrames)
	if !(meetingTime > 0) {
		return 0
	}
	total := TotalTime(meetingTime)
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return 0
	}
	samples := math.Floor(total * samplesPerSecond)
	if samples >= float64(maxFrames) {
		return maxFrames
	}
	return int(samples)
}

// GenerateAnimationFrames returns a lazy sequence of evenly spaced frames
// covering [0, 1.1*meetingTime). The sequence is empty when the meeting time
// is too short to sample at all. Ranging over it again replays the same frames.
func GenerateAnimationFrames(in CollisionInput, meetingTime float64, maxFrames int) iter.Seq[AnimationFrame] {
	count := FrameCount(meetingTime, maxFrames)
	total := TotalTime(meetingTime)

	return func(yield func(AnimationFrame) bool) {
		for i := 0; i < count; i++ {
			t := float64(i) / float64(count) * total
			if !yield(frameAt(in, t)) {
				return
			}
		}
	}
}

// Frames collects GenerateAnimationFrames into a slice.
func Frames(in CollisionInput, meetingTime float64, maxFrames int) []AnimationFrame {
	out := make([]AnimationFrame, 0, FrameCount(meetingTime, maxFrames))
	for f := range GenerateAnimationFrames(in, meetingTime, maxFrames) {
		out = append(out, f)
	}
	return out
}

func frameAt(in CollisionInput, t float64) AnimationFrame {
	f := AnimationFrame{
		TimeSec:   t,
		PositionA: in.SpeedA * t,
	}
	if in.Scenario == ScenarioSameDirection {
		f.PositionB = in.SpeedB * t
	} else {
		f.PositionB = in.InitialDistance - in.SpeedB*t
	}
	return f
}

func clampMaxFrames(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxFrames
	case n > MaxFramesLimit:
		return MaxFramesLimit
	default:
		return n
	}
}
