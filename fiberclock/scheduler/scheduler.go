// Package scheduler fans clock lifecycle events out to fibers grouped in
// named modes.
//
// Exactly one mode is active at a time. Membership changes and mode switches
// never call a fiber directly: the affected fibers are queued as pending and
// reconciled at the start of the next clock callback, so a fiber is only ever
// started while the clock is actually running.
package scheduler

import (
	"log/slog"
	"slices"
	"time"

	"github.com/valerio/go-fiberclock/fiberclock/clock"
	"github.com/valerio/go-fiberclock/fiberclock/fiber"
	"github.com/valerio/go-fiberclock/fiberclock/timing"
)

// DefaultMode is the mode a new scheduler starts in.
const DefaultMode = "default"

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithMode sets the initial mode.
func WithMode(mode string) Option {
	return func(s *Scheduler) { s.mode = mode }
}

// Scheduler drives fibers from a Clock. It installs itself as the clock's
// delegate and is not safe for concurrent use.
type Scheduler struct {
	clock  *clock.Clock
	logger *slog.Logger

	currentFrameCounter int64
	currentFrameTime    time.Duration
	currentFrameSkip    bool

	mode         string
	fibersByMode map[string]*fiber.Set
	fibers       *fiber.Set // alias of fibersByMode[mode]
	started      *fiber.Set
	pending      *fiber.Set
}

// New creates a scheduler bound to c.
func New(c *clock.Clock, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:               c,
		logger:              slog.Default(),
		currentFrameCounter: -1,
		currentFrameTime:    -1,
		mode:                DefaultMode,
		fibersByMode:        make(map[string]*fiber.Set),
		started:             fiber.NewSet(),
		pending:             fiber.NewSet(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.fibers = s.FibersForMode(s.mode)
	c.SetDelegate(clockDelegate{s})
	return s
}

func (s *Scheduler) Clock() *clock.Clock { return s.clock }

// Start starts the underlying clock.
func (s *Scheduler) Start() { s.clock.Start() }

// Stop stops the underlying clock, see clock.Clock.Stop.
func (s *Scheduler) Stop() error { return s.clock.Stop() }

func (s *Scheduler) Frequency() timing.FramePeriod { return s.clock.Frequency() }

func (s *Scheduler) SetFrequency(p timing.FramePeriod) error { return s.clock.SetFrequency(p) }

// CurrentFrameCounter is the counter of the frame being ticked, -1 before
// the first tick.
func (s *Scheduler) CurrentFrameCounter() int64 { return s.currentFrameCounter }

// CurrentFrameTime is the elapsed time of the frame being ticked, -1 before
// the first tick.
func (s *Scheduler) CurrentFrameTime() time.Duration { return s.currentFrameTime }

// CurrentFrameSkip reports whether the frame being ticked is part of a
// catch-up burst and will be followed by another one in the same callback.
func (s *Scheduler) CurrentFrameSkip() bool { return s.currentFrameSkip }

func (s *Scheduler) Mode() string { return s.mode }

// SetMode switches the active mode. Fibers of both the old and the new mode
// are queued for reconciliation; nothing is started or stopped until the next
// clock callback, and fibers present in both modes are left alone.
func (s *Scheduler) SetMode(mode string) {
	if s.mode == mode {
		return
	}

	for f := range s.fibers.All() {
		s.pending.Add(f)
	}

	s.logger.Debug("Scheduler mode changed", "from", s.mode, "to", mode)
	s.mode = mode
	s.fibers = s.FibersForMode(mode)

	for f := range s.fibers.All() {
		s.pending.Add(f)
	}
}

// FibersForMode returns the live set of fibers of mode, creating it if needed.
func (s *Scheduler) FibersForMode(mode string) *fiber.Set {
	if set, ok := s.fibersByMode[mode]; ok {
		return set
	}
	set := fiber.NewSet()
	s.fibersByMode[mode] = set
	return set
}

// Modes returns the known mode names, sorted.
func (s *Scheduler) Modes() []string {
	modes := make([]string, 0, len(s.fibersByMode))
	for mode := range s.fibersByMode {
		modes = append(modes, mode)
	}
	slices.Sort(modes)
	return modes
}

// ActiveFibers returns the fibers of the current mode in tick order.
func (s *Scheduler) ActiveFibers() []fiber.Fiber { return s.fibers.Slice() }

// IsStarted reports whether f has been started and not yet stopped.
func (s *Scheduler) IsStarted(f fiber.Fiber) bool { return s.started.Has(f) }

// PendingCount returns the number of fibers awaiting reconciliation.
func (s *Scheduler) PendingCount() int { return s.pending.Len() }

// FiberWithName returns the first fiber of the active mode named name.
func (s *Scheduler) FiberWithName(name string) (fiber.Fiber, bool) {
	for f := range s.fibers.All() {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// AddFiber adds f to every listed mode.
func (s *Scheduler) AddFiber(f fiber.Fiber, modes ...string) {
	for _, mode := range modes {
		s.FibersForMode(mode).Add(f)
	}
	if slices.Contains(modes, s.mode) {
		s.pending.Add(f)
	}
}

// RemoveFiber removes f from the listed modes, or from every mode when none
// are listed.
func (s *Scheduler) RemoveFiber(f fiber.Fiber, modes ...string) {
	if len(modes) == 0 {
		for _, set := range s.fibersByMode {
			set.Delete(f)
		}
		s.pending.Add(f)
		return
	}

	for _, mode := range modes {
		s.FibersForMode(mode).Delete(f)
	}
	if slices.Contains(modes, s.mode) {
		s.pending.Add(f)
	}
}

// RemoveFibers removes every fiber of the active mode matching pred from all
// modes and returns how many were removed.
func (s *Scheduler) RemoveFibers(pred func(fiber.Fiber) bool) int {
	var doomed []fiber.Fiber
	for f := range s.fibers.All() {
		if pred(f) {
			doomed = append(doomed, f)
		}
	}
	if len(doomed) == 0 {
		return 0
	}

	for _, set := range s.fibersByMode {
		for _, f := range doomed {
			set.Delete(f)
		}
	}
	for _, f := range doomed {
		s.pending.Add(f)
	}
	return len(doomed)
}

// AddGenerator wraps body in a generator fiber and adds it to modes.
func (s *Scheduler) AddGenerator(name string, body fiber.Body, modes ...string) *fiber.Generator {
	g := fiber.NewGenerator(name, body)
	s.AddFiber(g, modes...)
	return g
}

func (s *Scheduler) dispatchPendingSignalsToFibers() {
	if s.pending.Len() == 0 {
		return
	}

	running := s.clock.Started()
	for f := range s.pending.All() {
		if !s.fibers.Has(f) {
			s.started.Delete(f)
			f.Stop()
		} else if running && !s.started.Has(f) {
			s.started.Add(f)
			f.Start()
		}
	}

	s.pending.Clear()
}

func (s *Scheduler) clockStart() {
	s.dispatchPendingSignalsToFibers()

	for f := range s.fibers.All() {
		if s.started.Has(f) {
			continue
		}
		s.started.Add(f)
		f.Start()
	}
}

func (s *Scheduler) clockTick(counter uint64, elapsed time.Duration, skip bool) {
	if s.pending.Len() != 0 {
		s.dispatchPendingSignalsToFibers()
	}

	s.currentFrameCounter = int64(counter)
	s.currentFrameTime = elapsed
	s.currentFrameSkip = skip

	for f := range s.fibers.All() {
		f.Tick()
	}
}

func (s *Scheduler) clockStop() {
	s.dispatchPendingSignalsToFibers()

	for f := range s.started.All() {
		f.Stop()
	}
	s.started.Clear()
}

// clockDelegate keeps the clock callbacks off the Scheduler's public API.
type clockDelegate struct {
	s *Scheduler
}

func (d clockDelegate) Start() { d.s.clockStart() }

func (d clockDelegate) Tick(counter uint64, elapsed time.Duration, skip bool) {
	d.s.clockTick(counter, elapsed, skip)
}

func (d clockDelegate) Stop() { d.s.clockStop() }
