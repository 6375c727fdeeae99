package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/zeusync/mathcraft/internal/config"
	"github.com/zeusync/mathcraft/internal/core/kinematics"
	"github.com/zeusync/mathcraft/internal/core/notation"
	"github.com/zeusync/mathcraft/internal/core/observability/log"
	"github.com/zeusync/mathcraft/internal/player"
)

func main() {
	cfg := config.Default()

	speedA := flag.Float64("speed-a", cfg.Bounds.SpeedA.Default, "particle A speed in m/s")
	speedB := flag.Float64("speed-b", cfg.Bounds.SpeedB.Default, "particle B speed in m/s")
	distance := flag.Float64("distance", cfg.Bounds.Distance.Default, "initial distance in meters")
	scenarioName := flag.String("scenario", "opposite", "opposite or same_direction")
	maxFrames := flag.Int("frames", cfg.Engine.MaxFrames, "maximum animation frames")
	interval := flag.Duration("interval", cfg.Playback.FrameInterval.Std(), "delay between frames")
	flag.Parse()

	if err := run(*speedA, *speedB, *distance, *scenarioName, *maxFrames, *interval); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(speedA, speedB, distance float64, scenarioName string, maxFrames int, interval time.Duration) error {
	scenario, err := kinematics.ParseScenario(scenarioName)
	if err != nil {
		return err
	}
	in := kinematics.CollisionInput{SpeedA: speedA, SpeedB: speedB, InitialDistance: distance, Scenario: scenario}

	sim, err := kinematics.Simulate(in, maxFrames)
	if err != nil && !errors.Is(err, kinematics.ErrNoCollision) {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err = screen.Init(); err != nil {
		return err
	}

	p := player.New(screen, interval, log.NewNop())
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out, err := p.Play(ctx, sim)
	if err == nil && !out.Stopped {
		p.WaitForKey(ctx)
	}
	p.Close()
	if err != nil {
		return err
	}

	if mt := sim.Result.MeetingTime; mt != nil {
		sci, _ := notation.Scientific(*mt)
		fmt.Printf("Particles meet after %s s (%d frames shown)\n", sci.E(2), out.Shown)
	} else {
		fmt.Println("Particle B must be faster to catch up to Particle A.")
	}
	return nil
}
