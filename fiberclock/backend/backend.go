package backend

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/valerio/go-fiberclock/fiberclock/input/action"
	"github.com/valerio/go-fiberclock/fiberclock/input/event"
	"github.com/valerio/go-fiberclock/fiberclock/timing"
)

// Backend presents the state of a running scene and collects user input.
// Backends are responsible for:
// - Drawing the status to their specific output (terminal, SDL window, logs)
// - Translating platform-specific input events to Actions
// - Handling backend-specific actions (log filters, redraws)
type Backend interface {
	// Init configures the backend. This is a required step before calling Update.
	Init(config Config) error

	// Update presents the status and returns the input events collected
	// since the previous call. It is called once per host frame.
	Update(status *Status) ([]InputEvent, error)

	// Cleanup resources when shutting down
	Cleanup() error
}

// ActionHandler is implemented by backends that react to actions the
// application does not handle itself.
type ActionHandler interface {
	HandleAction(act action.Action)
}

// Config holds configuration for backends
type Config struct {
	Title    string
	Scale    int        // Pixel scale, graphical backends only
	LogLevel slog.Level // Minimum level shown or printed
}

// InputEvent is a translated user input.
type InputEvent struct {
	Action action.Action
	Type   event.Type
}

// Status is a snapshot of the clock and scheduler taken once per host frame.
type Status struct {
	Scene string
	Mode  string
	Modes []string

	Period timing.FramePeriod

	// Counter is the last frame counter delivered to fibers, -1 before the
	// first tick.
	Counter int64
	Elapsed time.Duration
	Skip    bool

	// Ticks counts frames delivered to fibers; Skipped counts the ones
	// flagged as catch-up frames.
	Ticks   uint64
	Skipped uint64

	// Restarts counts how many times the fibers were started again after a
	// stall or hibernation.
	Restarts uint64

	HostTime    time.Duration
	Running     bool
	Hibernating bool
	Paused      bool

	Fibers []FiberStatus
}

// FiberStatus describes one active fiber.
type FiberStatus struct {
	Name    string
	Started bool
	State   string
}

// Summary renders the status on one line.
func (s *Status) Summary() string {
	state := "running"
	switch {
	case s.Paused:
		state = "paused"
	case s.Hibernating:
		state = "hibernating"
	case !s.Running:
		state = "stopped"
	}
	return fmt.Sprintf("%s frame=%d t=%s mode=%s period=%s skipped=%d",
		state, s.Counter, s.Elapsed.Round(time.Millisecond), s.Mode, s.Period, s.Skipped)
}
