package fiberclock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/valerio/go-fiberclock/fiberclock/backend"
	"github.com/valerio/go-fiberclock/fiberclock/clock"
	"github.com/valerio/go-fiberclock/fiberclock/fiber"
	"github.com/valerio/go-fiberclock/fiberclock/input"
	"github.com/valerio/go-fiberclock/fiberclock/input/action"
	"github.com/valerio/go-fiberclock/fiberclock/input/event"
	"github.com/valerio/go-fiberclock/fiberclock/scene"
	"github.com/valerio/go-fiberclock/fiberclock/scheduler"
	"github.com/valerio/go-fiberclock/fiberclock/timing"
)

// StatsFiberName is the name of the fiber that counts delivered frames.
const StatsFiberName = "stats"

// FrequencyPresets are the frame periods cycled through by the frequency
// actions, slowest first.
var FrequencyPresets = []timing.FramePeriod{
	{Num: 1, Denom: 12},
	{Num: 1, Denom: 15},
	{Num: 24, Denom: 1001},
	{Num: 1, Denom: 30},
	{Num: 1, Denom: 60},
	{Num: 1, Denom: 120},
}

// Config holds the application wiring.
type Config struct {
	Backend       backend.Backend
	BackendConfig backend.Config
	Scene         *scene.Scene

	// Input filters backend events; a default debouncing handler is used when nil.
	Input *input.Handler
}

// App runs a scene on a scheduler, clock and host, and presents it through a
// backend once per host frame.
type App struct {
	host    timing.Runner
	clock   *clock.Clock
	sched   *scheduler.Scheduler
	scene   *scene.Instance
	backend backend.Backend
	bcfg    backend.Config
	input   *input.Handler
	stats   *statsFiber

	present timing.FrameHandle
	cancel  context.CancelFunc
	paused  bool
	quit    bool
	err     error
}

// New builds the clock and scheduler on host and installs the scene.
func New(host timing.Runner, cfg Config) (*App, error) {
	if cfg.Backend == nil {
		return nil, errors.New("a backend is required")
	}
	sc := cfg.Scene
	if sc == nil {
		sc = scene.Default()
	}
	handler := cfg.Input
	if handler == nil {
		handler = input.NewHandler()
	}

	c := clock.New(host)
	sched := scheduler.New(c)
	in, err := sc.Apply(sched)
	if err != nil {
		return nil, fmt.Errorf("failed to apply scene: %w", err)
	}

	a := &App{
		host:    host,
		clock:   c,
		sched:   sched,
		scene:   in,
		backend: cfg.Backend,
		bcfg:    cfg.BackendConfig,
		input:   handler,
	}
	a.stats = &statsFiber{sched: sched}
	sched.AddFiber(a.stats, a.modes()...)

	return a, nil
}

func (a *App) Clock() *clock.Clock             { return a.clock }
func (a *App) Scheduler() *scheduler.Scheduler { return a.sched }
func (a *App) Scene() *scene.Instance          { return a.scene }
func (a *App) Paused() bool                    { return a.paused }

// Run initializes the backend, starts the scheduler and drives the host until
// ctx is done or a quit is requested. The backend is always cleaned up.
func (a *App) Run(ctx context.Context) (err error) {
	if err := a.backend.Init(a.bcfg); err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	defer func() {
		if cerr := a.backend.Cleanup(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to clean up backend: %w", cerr)
		}
	}()

	ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	slog.Info("Starting scene",
		"scene", a.scene.Scene.Name,
		"mode", a.sched.Mode(),
		"period", a.sched.Frequency().String())

	// The clock registers first so each presentation sees the frame that
	// was just delivered.
	a.sched.Start()
	a.present = a.host.RequestFrame(a.onHostFrame)

	runErr := a.host.Run(ctx)

	a.host.CancelFrame(a.present)
	if a.clock.Started() {
		if err := a.sched.Stop(); err != nil {
			slog.Warn("Failed to stop scheduler", "error", err)
		}
	}

	slog.Info("Scene finished",
		"frames", a.stats.ticks,
		"skipped", a.stats.skipped,
		"restarts", a.stats.restarts())

	if a.err != nil {
		return a.err
	}
	return runErr
}

// Status captures the current clock and scheduler state.
func (a *App) Status() *backend.Status {
	s := &backend.Status{
		Scene:       a.scene.Scene.Name,
		Mode:        a.sched.Mode(),
		Modes:       a.modes(),
		Period:      a.sched.Frequency(),
		Counter:     a.sched.CurrentFrameCounter(),
		Elapsed:     a.sched.CurrentFrameTime(),
		Skip:        a.sched.CurrentFrameSkip(),
		Ticks:       a.stats.ticks,
		Skipped:     a.stats.skipped,
		Restarts:    a.stats.restarts(),
		HostTime:    a.host.Now(),
		Running:     a.clock.Started(),
		Hibernating: a.clock.Hibernating(),
		Paused:      a.paused,
	}
	for _, f := range a.sched.ActiveFibers() {
		if f == a.stats {
			continue
		}
		fs := backend.FiberStatus{Name: f.Name(), Started: a.sched.IsStarted(f)}
		if actor, ok := a.scene.Actor(f); ok {
			fs.State = actor.Describe()
		}
		s.Fibers = append(s.Fibers, fs)
	}
	return s
}

func (a *App) onHostFrame(time.Duration) {
	events, err := a.backend.Update(a.Status())
	if err != nil {
		a.fail(fmt.Errorf("backend update failed: %w", err))
		return
	}

	for _, evt := range events {
		if a.quit {
			break
		}
		if evt.Type != event.Press || !a.input.ProcessEvent(evt) {
			continue
		}
		a.HandleAction(evt.Action)
	}

	if !a.quit {
		a.present = a.host.RequestFrame(a.onHostFrame)
	}
}

// HandleAction applies a user action. Actions the app does not know are
// passed to the backend when it implements backend.ActionHandler.
func (a *App) HandleAction(act action.Action) {
	switch act {
	case action.AppQuit:
		slog.Info("Quit requested")
		a.stop()
	case action.ClockPauseToggle:
		a.togglePause()
	case action.SchedulerNextMode:
		a.cycleMode(1)
	case action.SchedulerPrevMode:
		a.cycleMode(-1)
	case action.ClockFrequencyUp:
		a.changeFrequency(1)
	case action.ClockFrequencyDown:
		a.changeFrequency(-1)
	default:
		if h, ok := a.backend.(backend.ActionHandler); ok {
			h.HandleAction(act)
		}
	}
}

func (a *App) stop() {
	a.quit = true
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) fail(err error) {
	slog.Error("Stopping", "error", err)
	a.err = err
	a.stop()
}

func (a *App) togglePause() {
	if a.paused {
		a.paused = false
		a.sched.Start()
		slog.Info("Clock resumed")
		return
	}
	if err := a.sched.Stop(); err != nil {
		slog.Warn("Failed to pause clock", "error", err)
		return
	}
	a.paused = true
	slog.Info("Clock paused", "frame", a.sched.CurrentFrameCounter())
}

func (a *App) cycleMode(step int) {
	// modes always contains the current mode.
	modes := a.modes()
	i := slices.Index(modes, a.sched.Mode())
	next := modes[((i+step)%len(modes)+len(modes))%len(modes)]
	if next == a.sched.Mode() {
		return
	}
	slog.Info("Mode changed", "from", a.sched.Mode(), "to", next)
	a.sched.SetMode(next)
}

// changeFrequency moves to the next preset that is faster (dir > 0) or slower
// (dir < 0) than the current period.
func (a *App) changeFrequency(dir int) {
	cur := a.sched.Frequency()
	faster := func(p, q timing.FramePeriod) bool { return p.Num*q.Denom < q.Num*p.Denom }

	var target *timing.FramePeriod
	if dir > 0 {
		for i := range FrequencyPresets {
			if faster(FrequencyPresets[i], cur) {
				target = &FrequencyPresets[i]
				break
			}
		}
	} else {
		for i := len(FrequencyPresets) - 1; i >= 0; i-- {
			if faster(cur, FrequencyPresets[i]) {
				target = &FrequencyPresets[i]
				break
			}
		}
	}
	if target == nil {
		slog.Debug("No frame rate preset in that direction", "period", cur.String())
		return
	}

	if err := a.sched.SetFrequency(*target); err != nil {
		slog.Warn("Failed to change frame rate", "error", err)
		return
	}
	slog.Info("Frame rate changed", "from", cur.String(), "to", target.String())
}

// modes returns the scene modes plus the current mode if it is not one of them.
func (a *App) modes() []string {
	modes := a.scene.Scene.Modes()
	if m := a.sched.Mode(); !slices.Contains(modes, m) {
		modes = append(modes, m)
	}
	return modes
}

// statsFiber counts the frames delivered to fibers.
type statsFiber struct {
	sched   *scheduler.Scheduler
	starts  uint64
	ticks   uint64
	skipped uint64
}

var _ fiber.Fiber = (*statsFiber)(nil)

func (f *statsFiber) Name() string { return StatsFiberName }
func (f *statsFiber) Start()       { f.starts++ }
func (f *statsFiber) Stop()        {}

func (f *statsFiber) Tick() {
	f.ticks++
	if f.sched.CurrentFrameSkip() {
		f.skipped++
	}
}

func (f *statsFiber) restarts() uint64 {
	if f.starts == 0 {
		return 0
	}
	return f.starts - 1
}
