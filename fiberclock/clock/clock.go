// Package clock turns a jittery host frame callback into a drift-free sequence
// of logical frames at a fixed nominal period.
//
// The clock is anchored to host time so that frame n always maps to
// PeriodFor(n) after the anchor; rounding never accumulates. When the host
// stops delivering frames (a backgrounded page, a suspended process) the clock
// notices, stops its delegate and re-anchors on the next frame instead of
// replaying the missed frames in a burst.
package clock

import (
	"errors"
	"log/slog"
	"time"

	"github.com/valerio/go-fiberclock/fiberclock/timing"
)

const (
	// StallThreshold is how late a host frame may be before the clock treats
	// the gap as a stall rather than frames to catch up on.
	StallThreshold = 500 * time.Millisecond

	// WatchdogPeriod is the interval of the hibernation watchdog.
	WatchdogPeriod = 1024 * time.Millisecond
)

// ErrUnbalancedStop is returned by Stop when it is called more times than Start.
var ErrUnbalancedStop = errors.New("unbalanced start/stop sequence")

// Delegate receives the clock lifecycle. Elapsed is the offset of the frame
// from the anchor; skip is set on every frame of a catch-up burst but the last.
type Delegate interface {
	Start()
	Tick(counter uint64, elapsed time.Duration, skip bool)
	Stop()
}

// Option configures a Clock.
type Option func(*Clock)

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Clock) { c.logger = logger }
}

// WithFrequency sets the initial frame period. Invalid periods are ignored.
func WithFrequency(p timing.FramePeriod) Option {
	return func(c *Clock) {
		if p.Validate() == nil {
			c.period = p
		}
	}
}

// Clock produces logical frames from host frame callbacks.
// It is not safe for concurrent use; drive it from the host goroutine.
type Clock struct {
	host     timing.Host
	delegate Delegate
	period   timing.FramePeriod
	logger   *slog.Logger

	counter       uint64
	referenceTime time.Duration
	nextTime      time.Duration
	anchored      bool
	hibernating   bool
	running       int

	frame        timing.FrameHandle
	watchdog     timing.IntervalHandle
	watchdogSeen uint64

	onFrame timing.FrameCallback
}

// New creates a stopped clock on host.
func New(host timing.Host, opts ...Option) *Clock {
	c := &Clock{
		host:   host,
		period: timing.DefaultFramePeriod,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.onFrame = c.hostFrame
	return c
}

func (c *Clock) Host() timing.Host { return c.host }

func (c *Clock) Delegate() Delegate { return c.delegate }

func (c *Clock) SetDelegate(d Delegate) { c.delegate = d }

func (c *Clock) Frequency() timing.FramePeriod { return c.period }

// SetFrequency changes the frame period. The clock re-anchors on the next
// host frame so the counter continues without a jump.
func (c *Clock) SetFrequency(p timing.FramePeriod) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p == c.period {
		return nil
	}
	c.period = p
	c.unanchor()
	c.logger.Debug("Clock frequency changed", "period", p.String())
	return nil
}

// Started reports whether Start has been called more times than Stop.
func (c *Clock) Started() bool { return c.running >= 1 }

func (c *Clock) Hibernating() bool { return c.hibernating }

// Counter returns the index of the next frame to be delivered.
func (c *Clock) Counter() uint64 { return c.counter }

// Start arms the clock. Calls nest; only the first one arms the host frame
// callback and the watchdog.
func (c *Clock) Start() {
	c.running++
	if c.running != 1 {
		return
	}

	c.unanchor()
	c.frame = c.host.RequestFrame(c.onFrame)
	c.watchdogSeen = 0
	c.watchdog = c.host.SetInterval(WatchdogPeriod, c.checkWatchdog)
	c.logger.Debug("Clock started", "period", c.period.String())
}

// Stop undoes one Start. The last one disarms the clock and stops the
// delegate. Stopping a clock that is not started returns ErrUnbalancedStop.
func (c *Clock) Stop() error {
	if c.running == 0 {
		return ErrUnbalancedStop
	}

	c.running--
	if c.running != 0 {
		return nil
	}

	if c.frame != 0 {
		c.host.CancelFrame(c.frame)
		c.frame = 0
	}
	if c.watchdog != 0 {
		c.host.ClearInterval(c.watchdog)
		c.watchdog = 0
	}
	c.logger.Debug("Clock stopped", "counter", c.counter)

	if c.delegate != nil {
		c.delegate.Stop()
	}
	return nil
}

func (c *Clock) unanchor() {
	c.anchored = false
	c.referenceTime = 0
	c.nextTime = 0
}

func (c *Clock) reschedule() {
	c.frame = c.host.RequestFrame(c.onFrame)
}

func (c *Clock) hostFrame(now time.Duration) {
	c.frame = 0
	if c.running == 0 {
		return
	}
	delegate := c.delegate

	if !c.anchored {
		c.referenceTime = now - c.period.PeriodFor(c.counter)
		c.nextTime = now + c.period.PeriodFor(1)
		c.anchored = true
		c.reschedule()
		if c.hibernating {
			c.logger.Info("Clock resumed from hibernation", "counter", c.counter)
		}
		c.hibernating = false

		if delegate != nil {
			delegate.Start()
		}
		return
	}

	initialNextTime := c.nextTime
	if now < initialNextTime {
		c.reschedule()
		return
	}

	if late := now - initialNextTime; late > StallThreshold {
		c.logger.Info("Clock stalled, re-anchoring",
			"late_ms", late.Milliseconds(),
			"counter", c.counter)
		wasHibernating := c.hibernating
		c.unanchor()
		c.reschedule()
		if delegate != nil && !wasHibernating {
			delegate.Stop()
		}
		return
	}

	referenceTime := c.referenceTime
	initialCounter := c.counter
	counter := initialCounter
	nextTime := initialNextTime
	frameCount := uint64(0)

	// Frame n is due once its whole period has elapsed, at PeriodFor(n+1).
	for now >= nextTime {
		counter++
		frameCount++
		nextTime = referenceTime + c.period.PeriodFor(counter+1)
	}

	c.counter = counter
	c.nextTime = nextTime
	c.reschedule()

	if delegate == nil {
		return
	}

	if frameCount > 1 {
		c.logger.Debug("Clock catching up", "frames", frameCount, "counter", initialCounter)
	}
	for i := uint64(1); i <= frameCount; i++ {
		n := initialCounter + i - 1
		delegate.Tick(n, c.period.PeriodFor(n), i != frameCount)
	}
}

func (c *Clock) checkWatchdog() {
	if c.hibernating {
		return
	}

	current := c.counter
	if current == c.watchdogSeen && c.delegate != nil {
		c.logger.Info("Clock hibernating, no frames since last watchdog", "counter", current)
		c.hibernating = true
		c.unanchor()
		c.delegate.Stop()
	}
	c.watchdogSeen = current
}
