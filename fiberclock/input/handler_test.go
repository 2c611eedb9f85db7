package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valerio/go-fiberclock/fiberclock/backend"
	"github.com/valerio/go-fiberclock/fiberclock/input/action"
	"github.com/valerio/go-fiberclock/fiberclock/input/event"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestHandler() (*Handler, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	h := NewHandler()
	h.now = clk.now
	return h, clk
}

func TestHandler_Debouncing(t *testing.T) {
	tests := []struct {
		name           string
		action         action.Action
		eventType      event.Type
		timeBetween    time.Duration
		expectDebounce bool
	}{
		{
			name:           "rapid press - should debounce",
			action:         action.ClockPauseToggle,
			eventType:      event.Press,
			timeBetween:    100 * time.Millisecond,
			expectDebounce: true,
		},
		{
			name:           "slow press - should not debounce",
			action:         action.ClockPauseToggle,
			eventType:      event.Press,
			timeBetween:    400 * time.Millisecond,
			expectDebounce: false,
		},
		{
			name:           "rapid release - should debounce",
			action:         action.SchedulerNextMode,
			eventType:      event.Release,
			timeBetween:    10 * time.Millisecond,
			expectDebounce: true,
		},
		{
			name:           "Hold event type - should not debounce",
			action:         action.ClockFrequencyUp,
			eventType:      event.Hold,
			timeBetween:    10 * time.Millisecond,
			expectDebounce: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, clk := newTestHandler()

			evt := backend.InputEvent{Action: tt.action, Type: tt.eventType}
			assert.True(t, handler.ProcessEvent(evt), "First event should always pass")

			clk.t = clk.t.Add(tt.timeBetween)
			result := handler.ProcessEvent(evt)

			if tt.expectDebounce {
				assert.False(t, result, "Second event should be debounced")
			} else {
				assert.True(t, result, "Second event should not be debounced")
			}
		})
	}
}

func TestHandler_MultipleActions(t *testing.T) {
	handler, _ := newTestHandler()

	pause := backend.InputEvent{Action: action.ClockPauseToggle, Type: event.Press}
	mode := backend.InputEvent{Action: action.SchedulerNextMode, Type: event.Press}

	// Different actions shouldn't interfere with each other
	assert.True(t, handler.ProcessEvent(pause))
	assert.True(t, handler.ProcessEvent(mode))

	assert.False(t, handler.ProcessEvent(pause))
	assert.False(t, handler.ProcessEvent(mode))
}

func TestHandler_ZeroDelayDisablesDebounce(t *testing.T) {
	handler := NewHandlerWithDelay(0)
	evt := backend.InputEvent{Action: action.AppQuit, Type: event.Press}
	for i := 0; i < 5; i++ {
		assert.True(t, handler.ProcessEvent(evt))
	}
}

func TestDefaultKeyMap(t *testing.T) {
	act, ok := GetDefaultMapping("Space")
	assert.True(t, ok)
	assert.Equal(t, action.ClockPauseToggle, act)

	act, ok = GetDefaultMapping("q")
	assert.True(t, ok)
	assert.Equal(t, action.AppQuit, act)

	_, ok = GetDefaultMapping("F13")
	assert.False(t, ok)

	for key, act := range DefaultKeyMap {
		assert.NotEqual(t, "Unknown", action.GetInfo(act).Description, "key %q maps to an undescribed action", key)
	}
}
