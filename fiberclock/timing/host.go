package timing

import (
	"context"
	"time"
)

// FrameCallback is invoked once per host frame with the host time.
type FrameCallback func(now time.Duration)

// FrameHandle identifies a requested frame callback. Zero means none.
type FrameHandle uint64

// IntervalHandle identifies a repeating timer. Zero means none.
type IntervalHandle uint64

// Host is the platform clock source driving a Clock: a one-shot per-frame
// callback queue (the animation-frame primitive) and a repeating timer.
// All callbacks run on a single goroutine.
type Host interface {
	// Now returns the host time relative to the host's own origin.
	Now() time.Duration

	// RequestFrame queues cb to run on the next host frame.
	RequestFrame(cb FrameCallback) FrameHandle

	// CancelFrame drops a queued callback. Unknown handles are ignored.
	CancelFrame(h FrameHandle)

	// SetInterval runs fn every d until cleared.
	SetInterval(d time.Duration, fn func()) IntervalHandle

	// ClearInterval stops a repeating timer. Unknown handles are ignored.
	ClearInterval(h IntervalHandle)
}

// Runner is a Host that can drive itself until a context is done.
type Runner interface {
	Host
	Run(ctx context.Context) error
}

var (
	_ Runner = (*Loop)(nil)
	_ Runner = (*Stepper)(nil)
)

type frameRequest struct {
	handle FrameHandle
	cb     FrameCallback
}

type interval struct {
	handle IntervalHandle
	period time.Duration
	next   time.Duration
	fn     func()
}

// callbackQueue is the bookkeeping shared by Loop and ManualHost.
type callbackQueue struct {
	frames    []frameRequest
	intervals []*interval
	nextFrame FrameHandle
	nextTimer IntervalHandle
}

func (q *callbackQueue) requestFrame(cb FrameCallback) FrameHandle {
	q.nextFrame++
	q.frames = append(q.frames, frameRequest{handle: q.nextFrame, cb: cb})
	return q.nextFrame
}

func (q *callbackQueue) cancelFrame(h FrameHandle) {
	for i, req := range q.frames {
		if req.handle == h {
			q.frames = append(q.frames[:i], q.frames[i+1:]...)
			return
		}
	}
}

func (q *callbackQueue) setInterval(now, d time.Duration, fn func()) IntervalHandle {
	if d <= 0 {
		panic("timing: non-positive interval")
	}
	q.nextTimer++
	q.intervals = append(q.intervals, &interval{
		handle: q.nextTimer,
		period: d,
		next:   now + d,
		fn:     fn,
	})
	return q.nextTimer
}

func (q *callbackQueue) clearInterval(h IntervalHandle) {
	for i, iv := range q.intervals {
		if iv.handle == h {
			q.intervals = append(q.intervals[:i], q.intervals[i+1:]...)
			return
		}
	}
}

// runFrames delivers the callbacks queued before this call. Callbacks that
// request another frame land in the next batch.
func (q *callbackQueue) runFrames(now time.Duration) int {
	batch := q.frames
	q.frames = nil
	for _, req := range batch {
		req.cb(now)
	}
	return len(batch)
}

// earliestDue returns the interval with the smallest deadline not after t.
func (q *callbackQueue) earliestDue(t time.Duration) *interval {
	var due *interval
	for _, iv := range q.intervals {
		if iv.next <= t && (due == nil || iv.next < due.next) {
			due = iv
		}
	}
	return due
}

func (q *callbackQueue) active(h IntervalHandle) bool {
	for _, iv := range q.intervals {
		if iv.handle == h {
			return true
		}
	}
	return false
}
