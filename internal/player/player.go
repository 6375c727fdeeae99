// Package player replays a collision simulation in a terminal. Pacing and
// the stop key live here; the engine only supplies frames.
package player

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/zeusync/mathcraft/internal/core/kinematics"
	"github.com/zeusync/mathcraft/internal/core/observability/log"
	"github.com/zeusync/mathcraft/pkg/sequence"
)

var (
	styleTitle   = tcell.StyleDefault.Foreground(tcell.ColorOrange).Bold(true)
	styleA       = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleB       = tcell.StyleDefault.Foreground(tcell.ColorBlue).Bold(true)
	styleTrack   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleMeeting = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleHint    = tcell.StyleDefault.Foreground(tcell.ColorGray).Dim(true)
)

// Outcome summarizes a playback
type Outcome struct {
	Shown   int
	Stopped bool
}

// Player draws frames on a tcell screen at a fixed interval
type Player struct {
	screen   tcell.Screen
	interval time.Duration
	logger   log.Log

	stopCh    chan struct{}
	startOnce sync.Once
}

// New wraps an initialized screen.
func New(screen tcell.Screen, interval time.Duration, logger log.Log) *Player {
	return &Player{
		screen:   screen,
		interval: interval,
		logger:   logger.With(log.String("component", "player")),
		stopCh:   make(chan struct{}, 1),
	}
}

// Close finalizes the screen, which also ends the input loop.
func (p *Player) Close() {
	p.screen.Fini()
}

// Play draws every frame of sim until the frames run out, ctx is cancelled,
// or the user presses q / Esc / Ctrl-C.
func (p *Player) Play(ctx context.Context, sim kinematics.Simulation) (Outcome, error) {
	p.startOnce.Do(func() { go p.pollInput() })

	// drop a stop request left over from a previous playback
	select {
	case <-p.stopCh:
	default:
	}

	scale := newTrackScale(sim)
	next, stop := sequence.From(sim.Frames).Pull()
	defer stop()

	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	p.logger.Debug("Playback started",
		log.Stringer("scenario", sim.Input.Scenario),
		log.Int("frames", len(sim.Frames)))

	out := Outcome{}
	if len(sim.Frames) == 0 {
		p.drawMessage(sim)
		return out, nil
	}

	for {
		frame, ok := next()
		if !ok {
			return out, nil
		}

		p.draw(sim, scale, frame)
		out.Shown++

		if tick == nil {
			if ctx.Err() != nil {
				out.Stopped = true
				return out, nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			out.Stopped = true
			return out, nil
		case <-p.stopCh:
			out.Stopped = true
			return out, nil
		case <-tick:
		}
	}
}

// WaitForKey blocks until q / Esc / Ctrl-C is pressed or ctx ends.
func (p *Player) WaitForKey(ctx context.Context) {
	p.startOnce.Do(func() { go p.pollInput() })
	select {
	case <-ctx.Done():
	case <-p.stopCh:
	}
}

func (p *Player) pollInput() {
	for {
		ev := p.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' || ev.Rune() == 'Q' {
				select {
				case p.stopCh <- struct{}{}:
				default:
				}
			}
		case *tcell.EventResize:
			p.screen.Sync()
		}
	}
}

func (p *Player) draw(sim kinematics.Simulation, scale trackScale, f kinematics.AnimationFrame) {
	w, h := p.screen.Size()
	p.screen.Clear()

	p.drawText(0, 0, styleTitle, "MathCraft: Particle Collisions")
	p.drawText(0, 1, tcell.StyleDefault, fmt.Sprintf("Time: %.2e s", f.TimeSec))

	rowA, rowB := h/2-1, h/2+1
	for x := 0; x < w; x++ {
		p.screen.SetContent(x, h/2, '─', nil, styleTrack)
	}

	if mp := sim.Result.MeetingPoint; mp != nil {
		p.screen.SetContent(scale.column(*mp, w), h/2, '╳', nil, styleMeeting)
	}
	p.screen.SetContent(scale.column(f.PositionA, w), rowA, 'A', nil, styleA)
	p.screen.SetContent(scale.column(f.PositionB, w), rowB, 'B', nil, styleB)

	p.drawText(0, h-1, styleHint, "[q] stop")
	p.screen.Show()
}

func (p *Player) drawMessage(sim kinematics.Simulation) {
	_, h := p.screen.Size()
	p.screen.Clear()
	p.drawText(0, 0, styleTitle, "MathCraft: Particle Collisions")
	msg := "Collision is too fast to animate."
	if !sim.Result.Collides() {
		msg = "Particle B must be faster to catch up to Particle A."
	}
	p.drawText(0, h/2, tcell.StyleDefault, msg)
	p.screen.Show()
}

func (p *Player) drawText(x, y int, style tcell.Style, text string) {
	w, _ := p.screen.Size()
	for _, r := range text {
		if x >= w {
			return
		}
		p.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// trackScale maps positions in meters onto screen columns
type trackScale struct {
	min, max float64
}

func newTrackScale(sim kinematics.Simulation) trackScale {
	s := trackScale{min: 0, max: sim.Input.InitialDistance}
	for _, f := range sim.Frames {
		s.min = math.Min(s.min, math.Min(f.PositionA, f.PositionB))
		s.max = math.Max(s.max, math.Max(f.PositionA, f.PositionB))
	}
	if s.max <= s.min {
		s.max = s.min + 1
	}
	return s
}

func (s trackScale) column(pos float64, width int) int {
	if width <= 1 {
		return 0
	}
	col := int(math.Round((pos - s.min) / (s.max - s.min) * float64(width-1)))
	return max(0, min(width-1, col))
}
