package fiber

import (
	"iter"

	"github.com/google/uuid"
)

// Body is suspendable per-frame work. Each call to yield suspends the body
// until the next tick; yield returns false once the fiber is stopped and the
// body should return.
type Body func(yield func() bool)

// Generator wraps a Body as a Fiber. Start creates a fresh coroutine, every
// Tick resumes it up to its next yield and Stop releases it.
type Generator struct {
	name  string
	body  Body
	next  func() (struct{}, bool)
	stop  func()
	done  bool
	ticks uint64
}

var _ Fiber = (*Generator)(nil)

// NewGenerator creates a generator fiber. An empty name is replaced with a
// random unique one.
func NewGenerator(name string, body Body) *Generator {
	if name == "" {
		name = "gen-" + uuid.NewString()
	}
	return &Generator{name: name, body: body}
}

func (g *Generator) Name() string { return g.name }

// Start begins a new run of the body. Starting a running generator is a no-op.
func (g *Generator) Start() {
	if g.next != nil {
		return
	}
	body := g.body
	seq := iter.Seq[struct{}](func(yield func(struct{}) bool) {
		body(func() bool { return yield(struct{}{}) })
	})
	g.next, g.stop = iter.Pull(seq)
	g.done = false
	g.ticks = 0
}

// Tick resumes the body once. A finished body stays finished until restarted.
func (g *Generator) Tick() {
	if g.next == nil || g.done {
		return
	}
	g.ticks++
	if _, ok := g.next(); !ok {
		g.done = true
		g.release()
	}
}

// Stop abandons the current run. Safe to call at any time.
func (g *Generator) Stop() {
	g.release()
}

// Running reports whether the generator holds a live coroutine.
func (g *Generator) Running() bool { return g.next != nil }

// Done reports whether the body ran to completion on the last run.
func (g *Generator) Done() bool { return g.done }

// Ticks returns how many times the body was resumed in the current run.
func (g *Generator) Ticks() uint64 { return g.ticks }

func (g *Generator) release() {
	if g.stop != nil {
		g.stop()
	}
	g.next = nil
	g.stop = nil
}
