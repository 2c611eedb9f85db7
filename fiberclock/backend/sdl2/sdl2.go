//go:build sdl2

package sdl2

import (
	"fmt"
	"log/slog"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/valerio/go-fiberclock/fiberclock/backend"
	"github.com/valerio/go-fiberclock/fiberclock/input"
	"github.com/valerio/go-fiberclock/fiberclock/input/action"
	"github.com/valerio/go-fiberclock/fiberclock/input/event"
)

const (
	windowWidth  = 320
	windowHeight = 180
	beatSlots    = 24 // frame beat positions across the top strip
	rowHeight    = 10
	rowGap       = 4
)

// Backend implements the Backend interface using SDL2 bindings. It draws a
// frame beat strip and one bar per active fiber.
// Note: building this requires SDL2 development libraries installed.
// Default builds skip this and use a stubbed backend, see build tags (sdl2)
type Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	running  bool
	config   backend.Config
	events   []backend.InputEvent
	scale    int32
}

// New creates a new SDL2 backend
func New() *Backend {
	return &Backend{}
}

// Init initializes the SDL2 backend
func (s *Backend) Init(config backend.Config) error {
	s.config = config
	s.scale = int32(max(config.Scale, 1))

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %w", err)
	}

	window, err := sdl.CreateWindow(
		config.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		windowWidth*s.scale,
		windowHeight*s.scale,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return fmt.Errorf("failed to create window: %w", err)
	}
	s.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	if err := renderer.SetScale(float32(s.scale), float32(s.scale)); err != nil {
		slog.Warn("Failed to set renderer scale", "error", err)
	}
	s.renderer = renderer
	s.running = true

	slog.Info("SDL2 backend initialized", "scale", s.scale)
	return nil
}

// Update draws the status and processes window events
func (s *Backend) Update(status *backend.Status) ([]backend.InputEvent, error) {
	if !s.running {
		return nil, nil
	}

	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		s.handleEvent(ev)
	}

	events := s.events
	s.events = nil

	if !s.running {
		return events, nil
	}

	s.window.SetTitle(fmt.Sprintf("%s - %s", s.config.Title, status.Summary()))
	s.draw(status)
	return events, nil
}

// Cleanup cleans up SDL2 resources
func (s *Backend) Cleanup() error {
	slog.Info("Cleaning up SDL2 backend")

	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
	return nil
}

// sdlKeyNameMap converts SDL key codes to key names used in default mappings
var sdlKeyNameMap = map[sdl.Keycode]string{
	sdl.K_SPACE:        "Space",
	sdl.K_p:            "p",
	sdl.K_RIGHTBRACKET: "]",
	sdl.K_LEFTBRACKET:  "[",
	sdl.K_TAB:          "Tab",
	sdl.K_RIGHT:        "Right",
	sdl.K_LEFT:         "Left",
	sdl.K_m:            "m",
	sdl.K_EQUALS:       "=",
	sdl.K_PLUS:         "+",
	sdl.K_MINUS:        "-",
	sdl.K_ESCAPE:       "Escape",
	sdl.K_q:            "q",
}

func (s *Backend) handleEvent(ev sdl.Event) {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		s.running = false
		s.events = append(s.events, backend.InputEvent{Action: action.AppQuit, Type: event.Press})

	case *sdl.KeyboardEvent:
		if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
			return
		}
		act, ok := input.GetDefaultMapping(sdlKeyNameMap[e.Keysym.Sym])
		if !ok {
			return
		}
		if act == action.AppQuit {
			s.running = false
		}
		s.events = append(s.events, backend.InputEvent{Action: act, Type: event.Press})
	}
}

func (s *Backend) draw(status *backend.Status) {
	r := s.renderer

	// Background flashes red on catch-up frames.
	if status.Skip {
		r.SetDrawColor(0x40, 0x10, 0x10, 0xFF)
	} else {
		r.SetDrawColor(0x10, 0x10, 0x18, 0xFF)
	}
	r.Clear()

	// Beat strip: one lit slot per frame, wrapping every beatSlots frames.
	slotWidth := int32(windowWidth / beatSlots)
	for i := int32(0); i < beatSlots; i++ {
		r.SetDrawColor(0x30, 0x30, 0x38, 0xFF)
		if status.Counter >= 0 && int32(status.Counter%beatSlots) == i {
			switch {
			case status.Paused:
				r.SetDrawColor(0xE0, 0xC0, 0x20, 0xFF)
			case status.Hibernating:
				r.SetDrawColor(0x20, 0x60, 0xE0, 0xFF)
			default:
				r.SetDrawColor(0x20, 0xE0, 0x60, 0xFF)
			}
		}
		r.FillRect(&sdl.Rect{X: i*slotWidth + 1, Y: 2, W: slotWidth - 2, H: 8})
	}

	// Fiber bars: full width when started, a stub otherwise.
	y := int32(16)
	for _, f := range status.Fibers {
		if y+rowHeight > windowHeight {
			break
		}
		w := int32(windowWidth / 8)
		r.SetDrawColor(0x50, 0x50, 0x50, 0xFF)
		if f.Started {
			w = windowWidth - 8
			r.SetDrawColor(0x30, 0xA0, 0xD0, 0xFF)
		}
		r.FillRect(&sdl.Rect{X: 4, Y: y, W: w, H: rowHeight})
		y += rowHeight + rowGap
	}

	r.Present()
}
