// Package fiber defines the unit of per-frame work driven by the scheduler
// and a few ready-made implementations.
package fiber

// Fiber is an opaque unit of per-frame work. Identity is the interface value
// itself, so pointer implementations are compared by address.
//
// Stop must be safe to call on a fiber that was never started or was already
// stopped.
type Fiber interface {
	Name() string
	Start()
	Tick()
	Stop()
}

// Func adapts plain closures to a Fiber. Nil hooks are skipped.
type Func struct {
	ID      string
	OnStart func()
	OnTick  func()
	OnStop  func()
}

var _ Fiber = (*Func)(nil)

func (f *Func) Name() string { return f.ID }

func (f *Func) Start() {
	if f.OnStart != nil {
		f.OnStart()
	}
}

func (f *Func) Tick() {
	if f.OnTick != nil {
		f.OnTick()
	}
}

func (f *Func) Stop() {
	if f.OnStop != nil {
		f.OnStop()
	}
}
