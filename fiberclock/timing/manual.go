package timing

import (
	"context"
	"errors"
	"time"
)

// ManualHost is a deterministic Host. Time only moves when AdvanceTo is
// called and frame callbacks only run when Frame is called, so a test can
// simulate a backgrounded page by advancing time without delivering frames.
type ManualHost struct {
	q   callbackQueue
	now time.Duration
}

var _ Host = (*ManualHost)(nil)

// NewManualHost creates a host whose clock starts at start.
func NewManualHost(start time.Duration) *ManualHost {
	return &ManualHost{now: start}
}

func (h *ManualHost) Now() time.Duration { return h.now }

func (h *ManualHost) RequestFrame(cb FrameCallback) FrameHandle { return h.q.requestFrame(cb) }

func (h *ManualHost) CancelFrame(fh FrameHandle) { h.q.cancelFrame(fh) }

func (h *ManualHost) SetInterval(d time.Duration, fn func()) IntervalHandle {
	return h.q.setInterval(h.now, d, fn)
}

func (h *ManualHost) ClearInterval(ih IntervalHandle) { h.q.clearInterval(ih) }

// AdvanceTo moves the host clock to t, firing every interval that falls due
// on the way in deadline order. Moving backwards is ignored.
func (h *ManualHost) AdvanceTo(t time.Duration) {
	for {
		iv := h.q.earliestDue(t)
		if iv == nil {
			break
		}
		h.now = iv.next
		iv.next += iv.period
		iv.fn()
	}
	if t > h.now {
		h.now = t
	}
}

// Advance moves the host clock forward by d.
func (h *ManualHost) Advance(d time.Duration) {
	h.AdvanceTo(h.now + d)
}

// Frame delivers the queued frame callbacks at the current time and returns
// how many ran.
func (h *ManualHost) Frame() int {
	return h.q.runFrames(h.now)
}

// Step advances to t and then delivers one host frame.
func (h *ManualHost) Step(t time.Duration) int {
	h.AdvanceTo(t)
	return h.Frame()
}

// PendingFrames returns the number of queued frame callbacks.
func (h *ManualHost) PendingFrames() int { return len(h.q.frames) }

// ActiveIntervals returns the number of live repeating timers.
func (h *ManualHost) ActiveIntervals() int { return len(h.q.intervals) }

// IntervalActive reports whether ih is still scheduled.
func (h *ManualHost) IntervalActive(ih IntervalHandle) bool { return h.q.active(ih) }

// Stepper drives a ManualHost as fast as it can, moving its clock forward by
// Delta before every host frame. It satisfies Runner.
type Stepper struct {
	*ManualHost
	Delta func() time.Duration
}

// NewStepper creates a stepper over h. A nil delta advances one
// DefaultRefreshRate frame at a time.
func NewStepper(h *ManualHost, delta func() time.Duration) *Stepper {
	if delta == nil {
		step := RefreshDuration(DefaultRefreshRate)
		delta = func() time.Duration { return step }
	}
	return &Stepper{ManualHost: h, Delta: delta}
}

// Run steps the host until ctx is done. Cancellation is not an error.
func (s *Stepper) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		s.Step(s.Now() + max(s.Delta(), 0))
	}
}
