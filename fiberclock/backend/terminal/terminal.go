package terminal

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-fiberclock/fiberclock/backend"
	"github.com/valerio/go-fiberclock/fiberclock/backend/terminal/render"
	"github.com/valerio/go-fiberclock/fiberclock/input"
	"github.com/valerio/go-fiberclock/fiberclock/input/action"
	"github.com/valerio/go-fiberclock/fiberclock/input/event"
)

const (
	statusWidth   = 40
	minTermWidth  = 60
	minTermHeight = 16
	logCapacity   = 200
)

// Backend implements the Backend interface using tcell: a status panel on the
// left, the fiber list below it and captured logs on the right.
type Backend struct {
	screen     tcell.Screen
	running    bool
	logBuffer  *render.LogBuffer
	logLevel   *slog.LevelVar
	config     backend.Config
	eventQueue []backend.InputEvent

	signals     chan os.Signal
	interrupted atomic.Bool
}

// New creates a terminal backend drawing to the controlling terminal.
func New() *Backend {
	return &Backend{logLevel: new(slog.LevelVar)}
}

// NewWithScreen creates a terminal backend drawing to screen, typically a
// tcell simulation screen.
func NewWithScreen(screen tcell.Screen) *Backend {
	b := New()
	b.screen = screen
	return b
}

// Init initializes the terminal backend
func (t *Backend) Init(config backend.Config) error {
	t.config = config
	t.logLevel.Set(config.LogLevel)

	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		t.screen = screen
	}
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	t.running = true

	// Everything is captured; the panel filters by the current level.
	t.logBuffer = render.NewLogBuffer(logCapacity)
	slog.SetDefault(slog.New(render.NewLogBufferHandler(t.logBuffer, slog.LevelDebug)))
	slog.Info("Terminal backend initialized", "title", config.Title)

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	t.signals = make(chan os.Signal, 1)
	signal.Notify(t.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	go t.handleSignals(t.signals)

	return nil
}

// Update renders the status and returns the collected input events
func (t *Backend) Update(status *backend.Status) ([]backend.InputEvent, error) {
	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	if t.interrupted.CompareAndSwap(true, false) {
		t.running = false
		t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: action.AppQuit, Type: event.Press})
	}

	events := t.eventQueue
	t.eventQueue = nil
	for _, evt := range events {
		slog.Debug("UI event", "action", action.GetInfo(evt.Action).Description, "type", evt.Type)
	}

	if !t.running {
		return events, nil
	}

	t.render(status)
	t.screen.Show()

	return events, nil
}

// Cleanup cleans up terminal resources
func (t *Backend) Cleanup() error {
	if t.signals != nil {
		signal.Stop(t.signals)
		close(t.signals)
		t.signals = nil
	}
	if t.screen != nil {
		slog.Info("Cleaning up terminal backend")
		t.screen.Fini()
	}
	return nil
}

// HandleAction processes backend-specific actions
func (t *Backend) HandleAction(act action.Action) {
	switch act {
	case action.DebugLogLevelIncrease:
		t.changeLogLevel(1)
	case action.DebugLogLevelDecrease:
		t.changeLogLevel(-1)
	}
}

// LogLevel returns the level currently shown in the log panel.
func (t *Backend) LogLevel() slog.Level { return t.logLevel.Level() }

func (t *Backend) handleSignals(signals <-chan os.Signal) {
	if _, ok := <-signals; ok {
		t.interrupted.Store(true)
	}
}

// tcellKeyNameMap converts tcell keys to key names used in default mappings
var tcellKeyNameMap = map[tcell.Key]string{
	tcell.KeyTab:    "Tab",
	tcell.KeyLeft:   "Left",
	tcell.KeyRight:  "Right",
	tcell.KeyEscape: "Escape",
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey) {
	var name string
	switch ev.Key() {
	case tcell.KeyCtrlC:
		t.queue(action.AppQuit)
		return
	case tcell.KeyRune:
		name = string(ev.Rune())
		if ev.Rune() == ' ' {
			name = "Space"
		}
	default:
		name = tcellKeyNameMap[ev.Key()]
	}

	if act, ok := input.GetDefaultMapping(name); ok {
		t.queue(act)
	}
}

func (t *Backend) queue(act action.Action) {
	if act == action.AppQuit {
		t.running = false
	}
	t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: act, Type: event.Press})
}

func (t *Backend) changeLogLevel(direction int) {
	oldLevel := t.logLevel.Level()
	newLevel := oldLevel
	switch {
	case direction > 0 && oldLevel > slog.LevelDebug:
		newLevel = oldLevel - 4
	case direction < 0 && oldLevel < slog.LevelError:
		newLevel = oldLevel + 4
	}
	if newLevel != oldLevel {
		t.logLevel.Set(newLevel)
		slog.Info("Log filter changed", "from", oldLevel, "to", newLevel)
	}
}

func (t *Backend) render(status *backend.Status) {
	termWidth, termHeight := t.screen.Size()
	t.screen.Clear()

	if termWidth < minTermWidth || termHeight < minTermHeight {
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		t.drawText(0, termHeight/2, termWidth, tcell.StyleDefault.Foreground(tcell.ColorRed), msg)
		return
	}

	t.drawBorders(termWidth, termHeight)
	y := t.drawStatus(1, 1, status)
	t.drawFibers(1, y+1, termHeight-2, status)
	t.drawLogs(statusWidth+2, 1, termWidth-statusWidth-3, termHeight-2)
}

func (t *Backend) drawBorders(termWidth, termHeight int) {
	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)

	for y := 0; y < termHeight-1; y++ {
		t.screen.SetContent(statusWidth, y, '│', nil, borderStyle)
	}

	title := t.config.Title
	if title == "" {
		title = "fiberclock"
	}
	t.drawText(1, 0, statusWidth-2, titleStyle, " "+title+" ")
	t.drawText(statusWidth+2, 0, termWidth-statusWidth-3, titleStyle,
		fmt.Sprintf(" Logs [%s] (-/+ filter) ", t.logLevel.Level()))

	help := " SPACE=pause/resume TAB=next mode [ ]=frame rate +/-=logs Q=quit "
	t.drawText(0, termHeight-1, termWidth, borderStyle, help)
}

func (t *Backend) drawStatus(x, y int, s *backend.Status) int {
	labelStyle := tcell.StyleDefault.Foreground(tcell.ColorSilver)
	valueStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)

	state, stateColor := "RUNNING", tcell.ColorGreen
	switch {
	case s.Paused:
		state, stateColor = "PAUSED", tcell.ColorYellow
	case s.Hibernating:
		state, stateColor = "HIBERNATING", tcell.ColorBlue
	case !s.Running:
		state, stateColor = "STOPPED", tcell.ColorRed
	}

	frame := "-"
	if s.Counter >= 0 {
		frame = fmt.Sprintf("%d", s.Counter)
	}
	if s.Skip {
		frame += " (catch-up)"
	}

	rows := []struct {
		label, value string
		style        tcell.Style
	}{
		{"Scene", s.Scene, valueStyle},
		{"State", state, valueStyle.Foreground(stateColor)},
		{"Mode", fmt.Sprintf("%s (%d modes)", s.Mode, len(s.Modes)), valueStyle},
		{"Period", s.Period.String(), valueStyle},
		{"Frame", frame, valueStyle},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String(), valueStyle},
		{"Skipped", fmt.Sprintf("%d of %d", s.Skipped, s.Ticks), valueStyle},
		{"Restarts", fmt.Sprintf("%d", s.Restarts), valueStyle},
		{"Host", s.HostTime.Round(time.Millisecond).String(), valueStyle},
	}

	for i, row := range rows {
		t.drawText(x, y+i, 10, labelStyle, row.label+":")
		t.drawText(x+10, y+i, statusWidth-x-11, row.style, row.value)
	}
	return y + len(rows)
}

func (t *Backend) drawFibers(x, y, bottom int, s *backend.Status) {
	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	t.drawText(x, y, statusWidth-x-1, titleStyle, fmt.Sprintf("Fibers (%d)", len(s.Fibers)))

	for i, f := range s.Fibers {
		row := y + 1 + i
		if row >= bottom {
			break
		}
		marker, color := '·', tcell.ColorGray
		if f.Started {
			marker, color = '●', tcell.ColorGreen
		}
		t.screen.SetContent(x, row, marker, nil, tcell.StyleDefault.Foreground(color))
		t.drawText(x+2, row, 22, tcell.StyleDefault, f.Name)
		t.drawText(x+25, row, statusWidth-x-26, tcell.StyleDefault.Foreground(tcell.ColorSilver), f.State)
	}
}

func (t *Backend) drawLogs(x, y, width, bottom int) {
	if width <= 0 {
		return
	}
	for i, entry := range t.logBuffer.Recent(bottom-y, t.logLevel.Level()) {
		style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
		switch {
		case entry.Level >= slog.LevelError:
			style = style.Foreground(tcell.ColorRed)
		case entry.Level >= slog.LevelWarn:
			style = style.Foreground(tcell.ColorYellow)
		case entry.Level < slog.LevelInfo:
			style = style.Foreground(tcell.ColorGray)
		}
		t.drawText(x, y+i, width, style, render.FormatLogEntry(entry))
	}
}

// drawText writes s from (x, y), clipped to width cells.
func (t *Backend) drawText(x, y, width int, style tcell.Style, s string) {
	i := 0
	for _, ch := range s {
		if i >= width {
			return
		}
		t.screen.SetContent(x+i, y, ch, nil, style)
		i++
	}
}
