package headless

import (
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/valerio/go-fiberclock/fiberclock/backend"
	"github.com/valerio/go-fiberclock/fiberclock/input/action"
	"github.com/valerio/go-fiberclock/fiberclock/input/event"
)

// progressEvery is how many presented host frames pass between progress logs.
const progressEvery = 60

// Backend implements the Backend interface for automated runs and batch
// processing. It prints nothing but logs and quits after maxFrames ticks.
type Backend struct {
	config    backend.Config
	presented int
	maxFrames uint64
	last      backend.Status
}

// New creates a headless backend that requests a quit once maxFrames frames
// have been delivered to fibers. Zero runs until interrupted.
func New(maxFrames uint64) *Backend {
	return &Backend{maxFrames: maxFrames}
}

func (h *Backend) Init(config backend.Config) error {
	h.config = config

	slog.Info("Running headless mode", "frames", h.maxFrames)

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.LogLevel,
	})
	slog.SetDefault(slog.New(handler))

	return nil
}

// Update logs progress and signals completion
func (h *Backend) Update(status *backend.Status) ([]backend.InputEvent, error) {
	h.presented++
	h.last = *status

	if h.presented%progressEvery == 0 {
		slog.Debug("Frame progress",
			"ticks", status.Ticks,
			"total", h.maxFrames,
			"frame", status.Counter,
			"mode", status.Mode,
			"skipped", status.Skipped)
	}

	if h.maxFrames > 0 && status.Ticks >= h.maxFrames {
		slog.Info("Headless execution completed",
			"frames", status.Ticks,
			"skipped", status.Skipped,
			"restarts", status.Restarts,
			"host_frames", h.presented,
			"host_time", status.HostTime)
		return []backend.InputEvent{{Action: action.AppQuit, Type: event.Press}}, nil
	}

	return nil, nil
}

func (h *Backend) Cleanup() error {
	return nil
}

// Presented returns how many host frames were presented.
func (h *Backend) Presented() int { return h.presented }

// Last returns the most recently presented status.
func (h *Backend) Last() backend.Status { return h.last }

// Pacing describes how a simulated host advances between host frames.
type Pacing struct {
	// Step is the nominal host frame interval.
	Step time.Duration

	// Jitter adds a uniform random offset in [-Jitter, Jitter] to each step.
	Jitter time.Duration

	// StallEvery inserts an extra Stall gap every N host frames. Zero disables it.
	StallEvery int
	Stall      time.Duration

	// Seed makes jitter reproducible.
	Seed uint64
}

// Delta returns a generator of host frame intervals following p. Intervals
// are never negative.
func (p Pacing) Delta() func() time.Duration {
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	n := 0
	return func() time.Duration {
		n++
		d := p.Step
		if p.Jitter > 0 {
			d += time.Duration(rng.Int64N(int64(2*p.Jitter)+1)) - p.Jitter
		}
		if p.StallEvery > 0 && n%p.StallEvery == 0 {
			d += p.Stall
		}
		return max(d, 0)
	}
}
