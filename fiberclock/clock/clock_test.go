package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-fiberclock/fiberclock/timing"
)

type event struct {
	kind    string
	counter uint64
	elapsed time.Duration
	skip    bool
}

type recorder struct {
	events []event
}

func (r *recorder) Start() { r.events = append(r.events, event{kind: "start"}) }
func (r *recorder) Stop()  { r.events = append(r.events, event{kind: "stop"}) }
func (r *recorder) Tick(counter uint64, elapsed time.Duration, skip bool) {
	r.events = append(r.events, event{kind: "tick", counter: counter, elapsed: elapsed, skip: skip})
}

func (r *recorder) take() []event {
	out := r.events
	r.events = nil
	return out
}

func (r *recorder) kinds() []string {
	var out []string
	for _, e := range r.take() {
		out = append(out, e.kind)
	}
	return out
}

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}

func newTestClock(t *testing.T) (*Clock, *timing.ManualHost, *recorder) {
	t.Helper()
	host := timing.NewManualHost(ms(1000))
	rec := &recorder{}
	c := New(host)
	c.SetDelegate(rec)
	return c, host, rec
}

func TestClock_ReentrantStartStop(t *testing.T) {
	c, host, rec := newTestClock(t)

	c.Start()
	c.Start()
	require.NoError(t, c.Stop())
	assert.True(t, c.Started())
	assert.Equal(t, 1, host.PendingFrames())
	assert.Equal(t, 1, host.ActiveIntervals())
	assert.Empty(t, rec.take(), "inner stop does not reach the delegate")

	require.NoError(t, c.Stop())
	assert.False(t, c.Started())
	assert.Equal(t, 0, host.PendingFrames())
	assert.Equal(t, 0, host.ActiveIntervals())
	assert.Equal(t, []string{"stop"}, rec.kinds())
}

func TestClock_UnbalancedStop(t *testing.T) {
	c, _, _ := newTestClock(t)
	assert.ErrorIs(t, c.Stop(), ErrUnbalancedStop)

	c.Start()
	require.NoError(t, c.Stop())
	assert.ErrorIs(t, c.Stop(), ErrUnbalancedStop)
}

func TestClock_FirstCallbackOnlyStarts(t *testing.T) {
	c, host, rec := newTestClock(t)
	c.Start()

	host.Step(ms(1000))
	assert.Equal(t, []string{"start"}, rec.kinds())
	assert.Equal(t, 1, host.PendingFrames(), "next frame is requested after anchoring")
}

func TestClock_FilmRateScenario(t *testing.T) {
	c, host, rec := newTestClock(t)
	c.Start()

	host.Step(ms(1000))
	require.Equal(t, []string{"start"}, rec.kinds())

	host.Step(ms(1024))
	assert.Equal(t, []event{{kind: "tick", counter: 0, elapsed: 0, skip: false}}, rec.take())

	host.Step(ms(1050))
	events := rec.take()
	require.Len(t, events, 1)
	assert.Equal(t, uint64(1), events[0].counter)
	assert.InDelta(t, 23.976, float64(events[0].elapsed)/float64(time.Millisecond), 0.001)
	assert.False(t, events[0].skip)
	assert.Equal(t, uint64(2), c.Counter())
}

func TestClock_TooEarlyCallbackDoesNothing(t *testing.T) {
	c, host, rec := newTestClock(t)
	c.Start()
	host.Step(ms(1000))
	rec.take()

	host.Step(ms(1010))
	host.Step(ms(1020))
	assert.Empty(t, rec.take())
	assert.Equal(t, 1, host.PendingFrames())
	assert.Equal(t, uint64(0), c.Counter())
}

func TestClock_CatchUpMarksSkipFrames(t *testing.T) {
	c, host, rec := newTestClock(t)
	c.Start()
	host.Step(ms(1000))
	rec.take()

	// 100ms late covers four 23.976ms frames.
	host.Step(ms(1100))
	events := rec.take()
	require.Len(t, events, 4)
	for i, e := range events {
		assert.Equal(t, "tick", e.kind)
		assert.Equal(t, uint64(i), e.counter)
		assert.Equal(t, timing.DefaultFramePeriod.PeriodFor(uint64(i)), e.elapsed)
		assert.Equal(t, i != len(events)-1, e.skip, "frame %d", i)
	}
	assert.Equal(t, uint64(4), c.Counter())
}

func TestClock_StallStopsOnceAndReanchors(t *testing.T) {
	c, host, rec := newTestClock(t)
	c.Start()
	host.Step(ms(1000))
	host.Step(ms(1024))
	rec.take()

	// Expected frame 1 at ~1047.95; 600ms later is a stall.
	host.Step(ms(1650))
	assert.Equal(t, []string{"stop"}, rec.kinds())
	assert.Equal(t, uint64(1), c.Counter(), "no synthetic catch-up frames")

	host.Step(ms(1660))
	assert.Equal(t, []string{"start"}, rec.kinds())

	host.Step(ms(1660) + timing.DefaultFramePeriod.Duration())
	events := rec.take()
	require.Len(t, events, 1)
	assert.Equal(t, uint64(1), events[0].counter, "counter continues after re-anchoring")
	assert.False(t, events[0].skip)
}

func TestClock_WatchdogHibernation(t *testing.T) {
	c, host, rec := newTestClock(t)
	c.Start()
	host.Step(ms(1000))
	host.Step(ms(1024))
	assert.Equal(t, []string{"start", "tick"}, rec.kinds())

	// First watchdog window saw the counter move from 0 to 1.
	host.AdvanceTo(ms(2024))
	assert.Empty(t, rec.take())
	assert.False(t, c.Hibernating())

	// No frames in the second window.
	host.AdvanceTo(ms(3048))
	assert.Equal(t, []string{"stop"}, rec.kinds())
	assert.True(t, c.Hibernating())

	// Further windows are quiet while hibernating.
	host.AdvanceTo(ms(10000))
	assert.Empty(t, rec.take())

	host.Frame()
	assert.Equal(t, []string{"start"}, rec.kinds())
	assert.False(t, c.Hibernating())
}

func TestClock_WatchdogNeedsDelegate(t *testing.T) {
	host := timing.NewManualHost(0)
	c := New(host)
	c.Start()
	host.AdvanceTo(5 * time.Second)
	assert.False(t, c.Hibernating())
}

func TestClock_StallWhileHibernatingDoesNotStopAgain(t *testing.T) {
	c, host, rec := newTestClock(t)
	c.Start()
	host.Step(ms(1000))
	rec.take()

	c.hibernating = true
	host.Step(ms(2000))
	assert.Empty(t, rec.take())
}

func TestClock_SetFrequencyReanchors(t *testing.T) {
	c, host, rec := newTestClock(t)
	c.Start()
	host.Step(ms(1000))
	host.Step(ms(1024))
	rec.take()

	require.NoError(t, c.SetFrequency(timing.DefaultFramePeriod))
	host.Step(ms(1050))
	assert.Equal(t, []string{"tick"}, rec.kinds(), "same period keeps the anchor")

	fast := timing.FramePeriod{Num: 1, Denom: 100}
	require.NoError(t, c.SetFrequency(fast))
	assert.Equal(t, fast, c.Frequency())

	host.Step(ms(1500))
	assert.Equal(t, []string{"start"}, rec.kinds(), "new period re-anchors instead of jumping")

	host.Step(ms(1510))
	events := rec.take()
	require.Len(t, events, 1)
	assert.Equal(t, uint64(2), events[0].counter)
	assert.Equal(t, fast.PeriodFor(2), events[0].elapsed)
}

func TestClock_SetFrequencyRejectsInvalid(t *testing.T) {
	c, _, _ := newTestClock(t)
	err := c.SetFrequency(timing.FramePeriod{Num: 1, Denom: 0})
	assert.ErrorIs(t, err, timing.ErrInvalidPeriod)
	assert.Equal(t, timing.DefaultFramePeriod, c.Frequency())
}

func TestClock_NoDelegateStillCounts(t *testing.T) {
	host := timing.NewManualHost(0)
	c := New(host, WithFrequency(timing.FramePeriod{Num: 1, Denom: 100}))
	c.Start()
	host.Step(0)
	host.Step(ms(35))
	assert.Equal(t, uint64(3), c.Counter())
	require.NoError(t, c.Stop())
}

func TestClock_StopFromDelegateDisarms(t *testing.T) {
	host := timing.NewManualHost(0)
	c := New(host)
	stopper := &stopOnTick{clock: c}
	c.SetDelegate(stopper)

	c.Start()
	host.Step(0)
	host.Step(ms(30))

	assert.NoError(t, stopper.err)
	assert.False(t, c.Started())
	assert.Equal(t, 0, host.PendingFrames())
	assert.Equal(t, 0, host.ActiveIntervals())
}

type stopOnTick struct {
	clock *Clock
	err   error
}

func (s *stopOnTick) Start() {}
func (s *stopOnTick) Stop()  {}
func (s *stopOnTick) Tick(uint64, time.Duration, bool) {
	s.err = s.clock.Stop()
}
