package input

import (
	"time"

	"github.com/valerio/go-fiberclock/fiberclock/backend"
	"github.com/valerio/go-fiberclock/fiberclock/input/action"
	"github.com/valerio/go-fiberclock/fiberclock/input/event"
)

// DefaultDebounce is the minimum time between two handled presses of the
// same action.
const DefaultDebounce = 300 * time.Millisecond

// Handler filters backend input with per-action debouncing
type Handler struct {
	lastActionTime map[action.Action]time.Time
	debounceDelay  time.Duration
	now            func() time.Time
}

func NewHandler() *Handler {
	return NewHandlerWithDelay(DefaultDebounce)
}

// NewHandlerWithDelay creates a handler with a custom debounce delay. A zero
// delay disables debouncing.
func NewHandlerWithDelay(delay time.Duration) *Handler {
	return &Handler{
		lastActionTime: make(map[action.Action]time.Time),
		debounceDelay:  delay,
		now:            time.Now,
	}
}

// ProcessEvent processes an input event, applying debouncing for Press/Release events
// Returns true if the event should be handled, false if it was debounced
func (h *Handler) ProcessEvent(evt backend.InputEvent) bool {
	if h.debounceDelay <= 0 {
		return true
	}
	if evt.Type == event.Press || evt.Type == event.Release {
		now := h.now()
		if lastTime, exists := h.lastActionTime[evt.Action]; exists {
			if now.Sub(lastTime) < h.debounceDelay {
				return false
			}
		}
		h.lastActionTime[evt.Action] = now
	}

	return true
}
