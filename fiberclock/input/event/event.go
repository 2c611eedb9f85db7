package event

// Type represents the type of input event
type Type int

const (
	Press   Type = iota // Key pressed down (debounced)
	Release             // Key released (debounced)
	Hold                // Continuous while pressed (not debounced)
)

func (t Type) String() string {
	switch t {
	case Press:
		return "press"
	case Release:
		return "release"
	case Hold:
		return "hold"
	default:
		return "unknown"
	}
}
