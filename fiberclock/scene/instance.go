package scene

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/valerio/go-fiberclock/fiberclock/fiber"
	"github.com/valerio/go-fiberclock/fiberclock/scheduler"
)

// Built-in behaviours.
const (
	BehaviorCounter = "counter" // counts its ticks
	BehaviorBlink   = "blink"   // toggles every N ticks
	BehaviorWait    = "wait"    // runs for N ticks then finishes
	BehaviorLog     = "log"     // logs every N ticks
)

// DirectorName is the name of the fiber that plays the mode script.
const DirectorName = "scene-director"

// Actor is a scene fiber together with the state its behaviour exposes.
type Actor struct {
	Spec  FiberSpec
	Fiber *fiber.Generator
	Value int
	On    bool
}

// Describe renders the actor state for status displays.
func (a *Actor) Describe() string {
	switch a.Spec.Behavior {
	case BehaviorBlink:
		if a.On {
			return "on"
		}
		return "off"
	case BehaviorWait:
		if a.Fiber.Done() {
			return "done"
		}
		return fmt.Sprintf("%d left", a.Value)
	case BehaviorLog:
		return fmt.Sprintf("%d lines", a.Value)
	default:
		return fmt.Sprintf("%d", a.Value)
	}
}

// Instance is a scene installed on a scheduler.
type Instance struct {
	ID       string
	Scene    *Scene
	Actors   []*Actor
	Director *Director

	byFiber map[fiber.Fiber]*Actor
}

// Apply installs the scene on s: frequency, initial mode, fibers and, when a
// script is present, a director fiber registered in every scene mode.
func (sc *Scene) Apply(s *scheduler.Scheduler) (*Instance, error) {
	in := &Instance{
		ID:      uuid.NewString(),
		Scene:   sc,
		byFiber: make(map[fiber.Fiber]*Actor),
	}

	if sc.Frequency != nil {
		if err := s.SetFrequency(sc.Frequency.Period()); err != nil {
			return nil, fmt.Errorf("scene %q: %w", sc.Name, err)
		}
	}
	if sc.Mode != "" {
		s.SetMode(sc.Mode)
	}

	for _, spec := range sc.Fibers {
		a := &Actor{Spec: spec}
		a.Fiber = s.AddGenerator(spec.Name, a.body(s), spec.Modes...)
		in.Actors = append(in.Actors, a)
		in.byFiber[a.Fiber] = a
	}

	if len(sc.Script) > 0 {
		in.Director = &Director{sched: s, cues: sc.Script}
		s.AddFiber(in.Director, sc.Modes()...)
	}

	slog.Info("Scene applied",
		"scene", sc.Name,
		"instance", in.ID,
		"fibers", len(in.Actors),
		"modes", len(sc.Modes()))
	return in, nil
}

// Actor returns the actor driving f, if f belongs to this scene.
func (in *Instance) Actor(f fiber.Fiber) (*Actor, bool) {
	a, ok := in.byFiber[f]
	return a, ok
}

// Remove takes every scene fiber off s. They are stopped on the next dispatch.
func (in *Instance) Remove(s *scheduler.Scheduler) {
	for _, a := range in.Actors {
		s.RemoveFiber(a.Fiber)
	}
	if in.Director != nil {
		s.RemoveFiber(in.Director)
	}
}

func (a *Actor) body(s *scheduler.Scheduler) fiber.Body {
	every := max(a.Spec.Every, 1)

	switch a.Spec.Behavior {
	case BehaviorBlink:
		return func(yield func() bool) {
			for n := 1; ; n++ {
				if n%every == 0 {
					a.On = !a.On
					a.Value++
				}
				if !yield() {
					return
				}
			}
		}
	case BehaviorWait:
		return func(yield func() bool) {
			a.Value = a.Spec.Frames
			for a.Value > 0 {
				a.Value--
				if !yield() {
					return
				}
			}
		}
	case BehaviorLog:
		return func(yield func() bool) {
			for n := 1; ; n++ {
				if n%every == 0 {
					a.Value++
					slog.Info("Fiber heartbeat",
						"fiber", a.Fiber.Name(),
						"frame", s.CurrentFrameCounter(),
						"elapsed_ms", s.CurrentFrameTime().Milliseconds())
				}
				if !yield() {
					return
				}
			}
		}
	default:
		return func(yield func() bool) {
			for {
				a.Value++
				if !yield() {
					return
				}
			}
		}
	}
}

// Director switches the scheduler's mode when the frame counter reaches each
// script cue.
type Director struct {
	sched *scheduler.Scheduler
	cues  []Cue
	next  int
}

var _ fiber.Fiber = (*Director)(nil)

func (d *Director) Name() string { return DirectorName }
func (d *Director) Start()       {}
func (d *Director) Stop()        {}

func (d *Director) Tick() {
	counter := d.sched.CurrentFrameCounter()
	for d.next < len(d.cues) && counter >= d.cues[d.next].At {
		mode := d.cues[d.next].Mode
		d.next++
		if mode == d.sched.Mode() {
			continue
		}
		slog.Info("Scene cue", "frame", counter, "mode", mode)
		d.sched.SetMode(mode)
	}
}

// Done reports whether every cue has been played.
func (d *Director) Done() bool { return d.next >= len(d.cues) }
