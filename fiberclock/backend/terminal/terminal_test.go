package terminal

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-fiberclock/fiberclock/backend"
	"github.com/valerio/go-fiberclock/fiberclock/input/action"
	"github.com/valerio/go-fiberclock/fiberclock/timing"
)

func newSimBackend(t *testing.T, w, h int) (*Backend, tcell.SimulationScreen) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	screen := tcell.NewSimulationScreen("UTF-8")
	b := NewWithScreen(screen)
	require.NoError(t, b.Init(backend.Config{Title: "test", LogLevel: slog.LevelInfo}))
	screen.SetSize(w, h)
	t.Cleanup(func() { _ = b.Cleanup() })
	return b, screen
}

func screenText(screen tcell.SimulationScreen) string {
	cells, w, h := screen.GetContents()
	var sb strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := cells[y*w+x]
			if len(c.Runes) > 0 {
				sb.WriteRune(c.Runes[0])
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func sampleStatus() *backend.Status {
	return &backend.Status{
		Scene:   "demo",
		Mode:    "gameplay",
		Modes:   []string{"intro", "gameplay"},
		Period:  timing.DefaultFramePeriod,
		Counter: 42,
		Elapsed: time.Second,
		Ticks:   43,
		Skipped: 2,
		Running: true,
		Fibers: []backend.FiberStatus{
			{Name: "player", Started: true, State: "17"},
			{Name: "cursor", Started: false, State: "off"},
		},
	}
}

func TestTerminal_RendersStatusFibersAndLogs(t *testing.T) {
	b, screen := newSimBackend(t, 120, 30)

	slog.Info("Scene applied", "scene", "demo")
	events, err := b.Update(sampleStatus())
	require.NoError(t, err)
	assert.Empty(t, events)

	text := screenText(screen)
	assert.Contains(t, text, "RUNNING")
	assert.Contains(t, text, "gameplay (2 modes)")
	assert.Contains(t, text, "2 of 43")
	assert.Contains(t, text, "player")
	assert.Contains(t, text, "cursor")
	assert.Contains(t, text, "Scene applied scene=demo")
	assert.Contains(t, text, "Logs [INFO]")
}

func TestTerminal_TooSmall(t *testing.T) {
	b, screen := newSimBackend(t, 40, 10)

	_, err := b.Update(sampleStatus())
	require.NoError(t, err)
	assert.Contains(t, screenText(screen), "Terminal too small")
}

func TestTerminal_KeysBecomeActions(t *testing.T) {
	b, screen := newSimBackend(t, 120, 30)

	screen.InjectKey(tcell.KeyRune, ' ', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'm', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, ']', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'z', tcell.ModNone) // unmapped

	events, err := b.Update(sampleStatus())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, action.ClockPauseToggle, events[0].Action)
	assert.Equal(t, action.SchedulerNextMode, events[1].Action)
	assert.Equal(t, action.ClockFrequencyUp, events[2].Action)

	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	events, err = b.Update(sampleStatus())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, action.AppQuit, events[0].Action)
}

func TestTerminal_Interrupt(t *testing.T) {
	b, _ := newSimBackend(t, 120, 30)
	b.interrupted.Store(true)

	events, err := b.Update(sampleStatus())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, action.AppQuit, events[0].Action)
}

func TestTerminal_LogLevelActions(t *testing.T) {
	b, _ := newSimBackend(t, 120, 30)
	assert.Equal(t, slog.LevelInfo, b.LogLevel())

	b.HandleAction(action.DebugLogLevelIncrease)
	assert.Equal(t, slog.LevelDebug, b.LogLevel())
	b.HandleAction(action.DebugLogLevelIncrease)
	assert.Equal(t, slog.LevelDebug, b.LogLevel(), "debug is the most verbose level")

	for i := 0; i < 5; i++ {
		b.HandleAction(action.DebugLogLevelDecrease)
	}
	assert.Equal(t, slog.LevelError, b.LogLevel())
}

func TestTerminalImplementsBackend(t *testing.T) {
	var _ backend.Backend = (*Backend)(nil)
	var _ backend.ActionHandler = (*Backend)(nil)
}
