package input

import "github.com/valerio/go-fiberclock/fiberclock/input/action"

// DefaultKeyMap provides default key mappings that work across backends.
// Backends translate their native key codes to these names.
var DefaultKeyMap = map[string]action.Action{
	"Space": action.ClockPauseToggle,
	"p":     action.ClockPauseToggle, // Alternative key
	"]":     action.ClockFrequencyUp,
	"[":     action.ClockFrequencyDown,

	"Tab":   action.SchedulerNextMode,
	"Right": action.SchedulerNextMode,
	"m":     action.SchedulerNextMode,
	"Left":  action.SchedulerPrevMode,
	"M":     action.SchedulerPrevMode,

	"+": action.DebugLogLevelIncrease,
	"=": action.DebugLogLevelIncrease, // Alternative without shift
	"-": action.DebugLogLevelDecrease,
	"_": action.DebugLogLevelDecrease, // Alternative with shift

	"Escape": action.AppQuit,
	"q":      action.AppQuit,
}

// GetDefaultMapping returns the default action for a key, if one exists
func GetDefaultMapping(key string) (action.Action, bool) {
	act, ok := DefaultKeyMap[key]
	return act, ok
}
