// Package scene describes a population of fibers, their modes and a mode
// script in YAML, and installs it on a scheduler.
package scene

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/valerio/go-fiberclock/fiberclock/timing"
)

//go:embed default.yaml
var defaultScene []byte

// Scene is the YAML document root.
type Scene struct {
	// Name identifies the scene in logs.
	Name string `yaml:"name"`

	// Frequency overrides the clock's frame period when set.
	Frequency *Frequency `yaml:"frequency,omitempty"`

	// Mode is the initial mode; the scheduler default is used when empty.
	Mode string `yaml:"mode,omitempty"`

	// Fibers lists the fibers to create.
	Fibers []FiberSpec `yaml:"fibers"`

	// Script switches modes at given frame counters, in order.
	Script []Cue `yaml:"script,omitempty"`
}

// Frequency mirrors timing.FramePeriod in YAML.
type Frequency struct {
	Num   int64 `yaml:"num"`
	Denom int64 `yaml:"denom"`
}

func (f Frequency) Period() timing.FramePeriod {
	return timing.FramePeriod{Num: f.Num, Denom: f.Denom}
}

// FiberSpec declares one fiber.
type FiberSpec struct {
	// Name may be left empty; a unique name is generated.
	Name string `yaml:"name,omitempty"`

	// Behavior is one of the built-in behaviours: counter, blink, wait, log.
	Behavior string `yaml:"behavior"`

	// Every is the tick period for blink and log. Defaults to 1.
	Every int `yaml:"every,omitempty"`

	// Frames is how long a wait fiber runs.
	Frames int `yaml:"frames,omitempty"`

	Modes []string `yaml:"modes"`
}

// Cue switches to Mode once the frame counter reaches At.
type Cue struct {
	At   int64  `yaml:"at"`
	Mode string `yaml:"mode"`
}

// Load reads and parses a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in demo scene.
func Default() *Scene {
	sc, err := Parse(defaultScene)
	if err != nil {
		panic(fmt.Sprintf("scene: embedded default scene is invalid: %v", err))
	}
	return sc
}

// Parse decodes a scene, rejecting unknown fields, and validates it.
func Parse(data []byte) (*Scene, error) {
	var sc Scene
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene: %w", err)
	}
	return &sc, nil
}

// Validate checks required fields and behaviour parameters.
func (sc *Scene) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}

	if sc.Frequency != nil {
		if err := sc.Frequency.Period().Validate(); err != nil {
			return fmt.Errorf("frequency: %w", err)
		}
	}

	if len(sc.Fibers) == 0 {
		return fmt.Errorf("fibers list is required and must be non-empty")
	}

	for i, f := range sc.Fibers {
		if len(f.Modes) == 0 {
			return fmt.Errorf("fiber %d (%q): modes list is required", i, f.Name)
		}
		switch f.Behavior {
		case BehaviorCounter:
		case BehaviorBlink, BehaviorLog:
			if f.Every < 0 {
				return fmt.Errorf("fiber %d (%q): every must not be negative", i, f.Name)
			}
		case BehaviorWait:
			if f.Frames <= 0 {
				return fmt.Errorf("fiber %d (%q): wait needs a positive frames count", i, f.Name)
			}
		default:
			return fmt.Errorf("fiber %d (%q): unknown behavior %q", i, f.Name, f.Behavior)
		}
	}

	var last int64 = -1
	for i, cue := range sc.Script {
		if cue.Mode == "" {
			return fmt.Errorf("script cue %d: mode is required", i)
		}
		if cue.At < last {
			return fmt.Errorf("script cue %d: frame %d comes before frame %d", i, cue.At, last)
		}
		last = cue.At
	}

	return nil
}

// Modes returns every mode the scene mentions, in first-mention order.
func (sc *Scene) Modes() []string {
	var modes []string
	seen := make(map[string]bool)
	add := func(m string) {
		if m != "" && !seen[m] {
			seen[m] = true
			modes = append(modes, m)
		}
	}

	add(sc.Mode)
	for _, f := range sc.Fibers {
		for _, m := range f.Modes {
			add(m)
		}
	}
	for _, cue := range sc.Script {
		add(cue.Mode)
	}
	return modes
}
