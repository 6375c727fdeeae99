package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/zeusync/mathcraft/internal/core/kinematics"
	"github.com/zeusync/mathcraft/internal/core/lesson"
	"github.com/zeusync/mathcraft/internal/core/notation"
	"github.com/zeusync/mathcraft/internal/core/observability/log"
	"github.com/zeusync/mathcraft/pkg/concurrent"
	"github.com/zeusync/mathcraft/pkg/sequence"
)

const maxBodyBytes = 1 << 20

// CollisionView is the presentation form of a collision outcome
type CollisionView struct {
	Input          kinematics.CollisionInput `json:"input"`
	RelativeSpeed  float64                   `json:"relative_speed"`
	MeetingTime    *float64                  `json:"meeting_time,omitempty"`
	MeetingPoint   *float64                  `json:"meeting_point,omitempty"`
	MeetingTimeSci string                    `json:"meeting_time_sci,omitempty"`
	Collides       bool                      `json:"collides"`
	Message        string                    `json:"message"`
}

// FramesView carries a collision outcome and its animation frames
type FramesView struct {
	CollisionView
	TotalTime float64                     `json:"total_time,omitempty"`
	Frames    []kinematics.AnimationFrame `json:"frames"`
}

type framesRequest struct {
	Input     kinematics.CollisionInput `json:"input"`
	MaxFrames int                       `json:"max_frames"`
}

// BatchItem is one entry of a batch response
type BatchItem struct {
	Index  int            `json:"index"`
	Result *CollisionView `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
	Code   string         `json:"code,omitempty"`
}

type expView struct {
	Value    float64  `json:"value"`
	Exp      *float64 `json:"exp"`
	Overflow bool     `json:"overflow"`
}

type notationView struct {
	notation.SciNotation
	Formatted string `json:"formatted"`
	E         string `json:"e"`
}

type lessonView struct {
	Bounds   lesson.Bounds    `json:"bounds"`
	Problems []lesson.Problem `json:"problems"`
}

func (s *Server) handleCollision(w http.ResponseWriter, r *http.Request) {
	var in kinematics.CollisionInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	sim, err := s.simulate(in, 0)
	if err != nil && !errors.Is(err, kinematics.ErrNoCollision) {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, collisionView(sim))
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	var req framesRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	sim, err := s.simulate(req.Input, req.MaxFrames)
	if err != nil && !errors.Is(err, kinematics.ErrNoCollision) {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	view := FramesView{CollisionView: collisionView(sim), Frames: sim.Frames}
	if sim.Result.Collides() {
		view.TotalTime = kinematics.TotalTime(*sim.Result.MeetingTime)
		if len(sim.Frames) == 0 {
			view.Message = "Collision is too fast to animate."
		}
	}
	s.writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var inputs []kinematics.CollisionInput
	if err := decodeBody(w, r, &inputs); err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	if len(inputs) > s.config.Engine.MaxBatchSize {
		s.writeError(w, r, http.StatusBadRequest,
			fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(inputs), s.config.Engine.MaxBatchSize))
		return
	}

	items, err := s.evaluateBatch(r.Context(), inputs)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, items)
}

// evaluateBatch computes every input concurrently; per-item failures are reported inline.
func (s *Server) evaluateBatch(ctx context.Context, inputs []kinematics.CollisionInput) ([]BatchItem, error) {
	indexed := make([]int, len(inputs))
	for i := range indexed {
		indexed[i] = i
	}

	return concurrent.ParallelMap(ctx, sequence.From(indexed), s.config.Engine.BatchWorkers,
		func(_ context.Context, i int) (BatchItem, error) {
			item := BatchItem{Index: i}
			sim, err := s.simulate(inputs[i], 0)
			if err != nil && !errors.Is(err, kinematics.ErrNoCollision) {
				item.Error = err.Error()
				item.Code = errorCode(err)
				return item, nil
			}
			view := collisionView(sim)
			item.Result = &view
			return item, nil
		})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	x, err := queryFloat(r, "x")
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	analysis, err := notation.Analyze(x)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, analysis)
}

func (s *Server) handleExp(w http.ResponseWriter, r *http.Request) {
	x, err := queryFloat(r, "x")
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	view := expView{Value: x}
	if v := notation.ExpOf(x); math.IsInf(v, 1) {
		view.Overflow = true
	} else {
		view.Exp = &v
	}
	s.writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleDecay(w http.ResponseWriter, r *http.Request) {
	halfLife, err := queryFloat(r, "half_life")
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	elapsed, err := queryFloat(r, "elapsed")
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	result, err := notation.Decay(halfLife, elapsed)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleNotation(w http.ResponseWriter, r *http.Request) {
	x, err := queryFloat(r, "x")
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	precision := 2
	if p := r.URL.Query().Get("precision"); p != "" {
		if precision, err = strconv.Atoi(p); err != nil || precision < 0 || precision > 16 {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: precision must be in [0, 16]", ErrBadRequest))
			return
		}
	}
	sci, err := notation.Scientific(x)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, notationView{
		SciNotation: sci,
		Formatted:   sci.Format(precision),
		E:           sci.E(precision),
	})
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, lessonView{
		Bounds:   s.config.Bounds,
		Problems: lesson.PracticeProblems(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.GetStats())
}

// simulate applies presentation rules (bounds, frame cap) before calling the engine
func (s *Server) simulate(in kinematics.CollisionInput, maxFrames int) (kinematics.Simulation, error) {
	if s.config.Server.EnforceBounds {
		if err := s.config.Bounds.Check(in); err != nil {
			return kinematics.Simulation{}, err
		}
	}
	if maxFrames <= 0 {
		maxFrames = s.config.Engine.MaxFrames
	}
	sim, err := s.cache.Simulate(in, maxFrames)
	if err != nil && !errors.Is(err, kinematics.ErrNoCollision) {
		s.logger.Debug("Simulation rejected",
			log.Stringer("scenario", in.Scenario),
			log.Error(err))
	}
	return sim, err
}

func collisionView(sim kinematics.Simulation) CollisionView {
	view := CollisionView{
		Input:         sim.Input,
		RelativeSpeed: sim.Result.RelativeSpeed,
		MeetingTime:   sim.Result.MeetingTime,
		MeetingPoint:  sim.Result.MeetingPoint,
		Collides:      sim.Result.Collides(),
	}

	if !view.Collides {
		view.Message = "Particle B must be faster to catch up to Particle A."
		return view
	}

	if sci, err := notation.Scientific(*sim.Result.MeetingTime); err == nil {
		view.MeetingTimeSci = sci.E(2)
	}
	if sim.Input.Scenario == kinematics.ScenarioSameDirection {
		view.Message = fmt.Sprintf("Collision will occur after %s seconds.", view.MeetingTimeSci)
	} else {
		view.Message = fmt.Sprintf("Particles will collide after %s seconds.", view.MeetingTimeSci)
	}
	return view
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var unmarshalErr *json.UnmarshalTypeError
		if errors.Is(err, kinematics.ErrInvalidInput) {
			return err
		}
		if errors.As(err, &unmarshalErr) {
			return fmt.Errorf("%w: field %s has wrong type", ErrBadRequest, unmarshalErr.Field)
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing query parameter %q", ErrBadRequest, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a number", ErrBadRequest, name)
	}
	return v, nil
}
