package action

// Action represents input actions that can be performed on a running scene
type Action int

const (
	// Clock controls
	ClockPauseToggle Action = iota
	ClockFrequencyUp
	ClockFrequencyDown

	// Scheduler controls
	SchedulerNextMode
	SchedulerPrevMode

	// Display and logging
	DebugLogLevelIncrease
	DebugLogLevelDecrease

	AppQuit
)

// Category groups actions by the component that reacts to them.
type Category int

const (
	CategoryClock Category = iota
	CategoryScheduler
	CategoryDebug
	CategoryApp
)

// Info describes an action for logs and help screens.
type Info struct {
	Description string
	Category    Category
}

var infos = map[Action]Info{
	ClockPauseToggle:      {"Pause/resume clock", CategoryClock},
	ClockFrequencyUp:      {"Faster frame rate", CategoryClock},
	ClockFrequencyDown:    {"Slower frame rate", CategoryClock},
	SchedulerNextMode:     {"Next mode", CategoryScheduler},
	SchedulerPrevMode:     {"Previous mode", CategoryScheduler},
	DebugLogLevelIncrease: {"More verbose logs", CategoryDebug},
	DebugLogLevelDecrease: {"Less verbose logs", CategoryDebug},
	AppQuit:               {"Quit", CategoryApp},
}

// GetInfo returns the description and category of act.
func GetInfo(act Action) Info {
	if info, ok := infos[act]; ok {
		return info
	}
	return Info{Description: "Unknown", Category: CategoryApp}
}

func (a Action) String() string { return GetInfo(a).Description }
