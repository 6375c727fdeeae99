package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/mathcraft/internal/core/kinematics"
	"github.com/zeusync/mathcraft/internal/core/observability/log"
	"github.com/zeusync/mathcraft/pkg/sequence"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Stream message types
const (
	StreamResult = "result"
	StreamFrame  = "frame"
	StreamDone   = "done"
)

// StreamMessage is sent from server to client during playback
type StreamMessage struct {
	Type    string                     `json:"type"`
	Session string                     `json:"session"`
	Result  *CollisionView             `json:"result,omitempty"`
	Frame   *kinematics.AnimationFrame `json:"frame,omitempty"`
	Index   int                        `json:"index,omitempty"`
	Frames  int                        `json:"frames,omitempty"`
	Stopped bool                       `json:"stopped,omitempty"`
	Message string                     `json:"message,omitempty"`
}

// ControlMessage is sent from client to server
type ControlMessage struct {
	Action string `json:"action"`
}

// handleAnimate streams the frames of one scenario at the configured pace
func (s *Server) handleAnimate(w http.ResponseWriter, r *http.Request) {
	in, maxFrames, err := parseStreamQuery(r)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	sim, err := s.simulate(in, maxFrames)
	if err != nil && !errors.Is(err, kinematics.ErrNoCollision) {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	if s.isStopping() {
		s.writeError(w, r, http.StatusServiceUnavailable, ErrServerStopping)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithContext(r.Context()).Warn("WebSocket upgrade failed", log.Error(err))
		return
	}

	// hijacked connections keep the server's read deadline
	_ = conn.SetReadDeadline(time.Time{})

	session := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	if !s.registerStream(session, cancel) {
		cancel()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ErrServerStopping.Error()),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	streamLogger := s.logger.WithContext(r.Context()).With(log.String("session", session))
	streamLogger.Debug("Stream opened", log.Int("frames", len(sim.Frames)))

	defer func() {
		cancel()
		s.streams.Delete(session)
		atomic.AddInt64(&s.streamCount, -1)
		_ = conn.Close()
		s.streamGroup.Done()
		streamLogger.Debug("Stream closed")
	}()

	go s.readControl(ctx, conn, cancel)

	sent, stopped, err := s.playback(ctx, conn, session, sim)
	if err != nil {
		streamLogger.Warn("Stream write failed", log.Error(err))
		return
	}

	done := StreamMessage{Type: StreamDone, Session: session, Frames: sent, Stopped: stopped}
	if !sim.Result.Collides() {
		done.Message = "no collision"
	} else if len(sim.Frames) == 0 {
		done.Message = "too fast to animate"
	}
	if err = s.writeMessage(conn, done); err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "playback finished"),
		time.Now().Add(time.Second))
}

// playback sends the result and then one frame per tick until done or stopped
func (s *Server) playback(ctx context.Context, conn *websocket.Conn, session string, sim kinematics.Simulation) (int, bool, error) {
	view := collisionView(sim)
	if err := s.writeMessage(conn, StreamMessage{Type: StreamResult, Session: session, Result: &view}); err != nil {
		return 0, false, err
	}

	next, stop := sequence.From(sim.Frames).Pull()
	defer stop()

	var tick <-chan time.Time
	if interval := s.config.Playback.FrameInterval.Std(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	sent := 0
	for {
		frame, ok := next()
		if !ok {
			return sent, false, nil
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return sent, true, nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return sent, true, nil
		}

		msg := StreamMessage{Type: StreamFrame, Session: session, Frame: &frame, Index: sent}
		if err := s.writeMessage(conn, msg); err != nil {
			return sent, false, err
		}
		sent++
	}
}

// readControl cancels playback on a stop action or when the client goes away
func (s *Server) readControl(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for ctx.Err() == nil {
		var msg ControlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Action == "stop" {
			return
		}
	}
}

func (s *Server) writeMessage(conn *websocket.Conn, msg StreamMessage) error {
	if timeout := s.config.Server.WriteTimeout.Std(); timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return conn.WriteJSON(msg)
}

func parseStreamQuery(r *http.Request) (kinematics.CollisionInput, int, error) {
	var in kinematics.CollisionInput
	var err error

	if in.SpeedA, err = queryFloat(r, "speed_a"); err != nil {
		return in, 0, err
	}
	if in.SpeedB, err = queryFloat(r, "speed_b"); err != nil {
		return in, 0, err
	}
	if in.InitialDistance, err = queryFloat(r, "distance"); err != nil {
		return in, 0, err
	}
	if in.Scenario, err = kinematics.ParseScenario(r.URL.Query().Get("scenario")); err != nil {
		return in, 0, err
	}

	maxFrames := 0
	if raw := r.URL.Query().Get("max_frames"); raw != "" {
		if maxFrames, err = strconv.Atoi(raw); err != nil {
			return in, 0, fmt.Errorf("%w: max_frames is not an integer", ErrBadRequest)
		}
	}
	return in, maxFrames, nil
}
