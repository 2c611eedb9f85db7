package timing

import (
	"log/slog"
	"time"
)

// DefaultRefreshRate is the host frame rate used when none is configured.
const DefaultRefreshRate = 60

// RefreshDuration returns the duration of one host frame at hz frames per second.
func RefreshDuration(hz int) time.Duration {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}
	return time.Second / time.Duration(hz)
}

// Limiter paces the host loop at the display refresh rate.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next host frame.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after pauses.
	Reset()
}

// NewLimiter builds a limiter by name: "adaptive", "ticker" or "none".
// Unknown names fall back to adaptive.
func NewLimiter(kind string, frameTime time.Duration) Limiter {
	switch kind {
	case "ticker":
		return NewTickerLimiter(frameTime)
	case "none":
		return NewNoOpLimiter()
	default:
		return NewAdaptiveLimiter(frameTime)
	}
}

// NewNoOpLimiter returns a limiter that doesn't limit.
func NewNoOpLimiter() Limiter {
	return noOpLimiter{}
}

type noOpLimiter struct{}

func (noOpLimiter) WaitForNextFrame() {}
func (noOpLimiter) Reset()            {}

const (
	spinWindow     = 2 * time.Millisecond  // busy-wait below this for accuracy
	resyncAfter    = 5 * time.Millisecond  // give up catching up past this
	driftWindow    = 60                    // frames between drift checks
	driftTolerance = 10 * time.Millisecond // drift corrected above this
)

// AdaptiveLimiter sleeps for most of the frame and spins for the rest, and
// resynchronizes instead of bursting when the loop falls behind.
type AdaptiveLimiter struct {
	frameTime time.Duration
	deadline  time.Time
	frames    uint64
	late      uint64
}

func NewAdaptiveLimiter(frameTime time.Duration) *AdaptiveLimiter {
	return &AdaptiveLimiter{frameTime: frameTime, deadline: time.Now()}
}

func (a *AdaptiveLimiter) WaitForNextFrame() {
	wait := time.Until(a.deadline)
	switch {
	case wait > spinWindow:
		time.Sleep(wait - spinWindow/2)
		spinUntil(a.deadline)
	case wait > 0:
		spinUntil(a.deadline)
	case wait < -resyncAfter:
		a.late++
		a.deadline = time.Now()
	}

	a.deadline = a.deadline.Add(a.frameTime)
	a.frames++

	if a.frames%driftWindow == 0 {
		drift := time.Since(a.deadline.Add(-a.frameTime))
		if drift.Abs() > driftTolerance {
			a.deadline = a.deadline.Add(drift / 10)
			slog.Debug("Host frame drift correction",
				"drift_ms", drift.Milliseconds(),
				"frames", a.frames,
				"late", a.late)
		}
	}
}

func (a *AdaptiveLimiter) Reset() {
	a.deadline = time.Now()
	a.frames = 0
	a.late = 0
}

// Late returns how many frames started so far behind schedule that the
// limiter resynchronized.
func (a *AdaptiveLimiter) Late() uint64 { return a.late }

func spinUntil(t time.Time) {
	for time.Now().Before(t) {
	}
}

// TickerLimiter paces frames with a time.Ticker. Ticks missed while the loop
// was busy are dropped, so it never bursts.
type TickerLimiter struct {
	ticker    *time.Ticker
	frameTime time.Duration
}

func NewTickerLimiter(frameTime time.Duration) *TickerLimiter {
	return &TickerLimiter{ticker: time.NewTicker(frameTime), frameTime: frameTime}
}

func (t *TickerLimiter) WaitForNextFrame() { <-t.ticker.C }

func (t *TickerLimiter) Reset() { t.ticker.Reset(t.frameTime) }

// Stop releases the ticker. The loop calls it when Run returns.
func (t *TickerLimiter) Stop() { t.ticker.Stop() }
