package timing

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Loop is the real-time Host. Everything it schedules runs on the goroutine
// that calls Run; other goroutines hand work over with Post.
type Loop struct {
	q       callbackQueue
	origin  time.Time
	limiter Limiter
	tasks   chan func()
	frames  uint64
}

var _ Host = (*Loop)(nil)

// NewLoop creates a loop paced by limiter. A nil limiter runs unthrottled.
func NewLoop(limiter Limiter) *Loop {
	if limiter == nil {
		limiter = NewNoOpLimiter()
	}
	return &Loop{
		origin:  time.Now(),
		limiter: limiter,
		tasks:   make(chan func(), 64),
	}
}

func (l *Loop) Now() time.Duration { return time.Since(l.origin) }

func (l *Loop) RequestFrame(cb FrameCallback) FrameHandle { return l.q.requestFrame(cb) }

func (l *Loop) CancelFrame(h FrameHandle) { l.q.cancelFrame(h) }

func (l *Loop) SetInterval(d time.Duration, fn func()) IntervalHandle {
	return l.q.setInterval(l.Now(), d, fn)
}

func (l *Loop) ClearInterval(h IntervalHandle) { l.q.clearInterval(h) }

// Post schedules fn to run on the loop goroutine before the next host frame.
func (l *Loop) Post(fn func()) {
	l.tasks <- fn
}

// Frames returns the number of host frames delivered so far.
func (l *Loop) Frames() uint64 { return l.frames }

// Run drives the loop until ctx is done. Cancellation is not an error.
func (l *Loop) Run(ctx context.Context) error {
	slog.Debug("Host loop started")
	if s, ok := l.limiter.(interface{ Stop() }); ok {
		defer s.Stop()
	}
	l.limiter.Reset()
	for {
		if err := ctx.Err(); err != nil {
			slog.Debug("Host loop stopped", "frames", l.frames)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		l.limiter.WaitForNextFrame()
		l.drainTasks()

		now := l.Now()
		for iv := l.q.earliestDue(now); iv != nil; iv = l.q.earliestDue(now) {
			// Missed deadlines collapse into one call, like a browser timer.
			for iv.next <= now {
				iv.next += iv.period
			}
			iv.fn()
		}

		l.q.runFrames(now)
		l.frames++
	}
}

func (l *Loop) drainTasks() {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		default:
			return
		}
	}
}
