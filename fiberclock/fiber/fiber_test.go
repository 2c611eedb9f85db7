package fiber_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-fiberclock/fiberclock/fiber"
)

func names(fibers []fiber.Fiber) []string {
	out := make([]string, 0, len(fibers))
	for _, f := range fibers {
		out = append(out, f.Name())
	}
	return out
}

func TestSet_PreservesInsertionOrder(t *testing.T) {
	a := &fiber.Func{ID: "a"}
	b := &fiber.Func{ID: "b"}
	c := &fiber.Func{ID: "c"}
	s := fiber.NewSet(a, b, c)

	assert.Equal(t, []string{"a", "b", "c"}, names(s.Slice()))

	assert.True(t, s.Delete(b))
	assert.False(t, s.Delete(b))
	assert.Equal(t, []string{"a", "c"}, names(s.Slice()))

	s.Add(b)
	assert.Equal(t, []string{"a", "c", "b"}, names(s.Slice()))
	assert.True(t, s.Has(c))
	assert.Equal(t, 3, s.Len())
}

func TestSet_IdentityNotValue(t *testing.T) {
	a1 := &fiber.Func{ID: "same"}
	a2 := &fiber.Func{ID: "same"}
	s := fiber.NewSet()

	assert.True(t, s.Add(a1))
	assert.False(t, s.Add(a1))
	assert.True(t, s.Add(a2))
	assert.Equal(t, 2, s.Len())
}

func TestSet_AllIteratesSnapshot(t *testing.T) {
	a := &fiber.Func{ID: "a"}
	b := &fiber.Func{ID: "b"}
	s := fiber.NewSet(a, b)

	var seen []string
	for f := range s.All() {
		seen = append(seen, f.Name())
		s.Delete(b)
		s.Add(&fiber.Func{ID: "late"})
	}

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, []string{"a", "late", "late"}, names(s.Slice()))
}

func TestSet_Clear(t *testing.T) {
	a := &fiber.Func{ID: "a"}
	s := fiber.NewSet(a)
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has(a))
	assert.True(t, s.Add(a))
}

func TestFunc_NilHooksAreSkipped(t *testing.T) {
	f := &fiber.Func{ID: "empty"}
	assert.NotPanics(t, func() {
		f.Start()
		f.Tick()
		f.Stop()
	})
}

func TestGenerator_ResumesOncePerTick(t *testing.T) {
	var steps []int
	g := fiber.NewGenerator("steps", func(yield func() bool) {
		for i := 0; i < 3; i++ {
			steps = append(steps, i)
			if !yield() {
				return
			}
		}
	})

	g.Tick()
	assert.Empty(t, steps, "tick before start does nothing")

	g.Start()
	g.Tick()
	g.Tick()
	assert.Equal(t, []int{0, 1}, steps)
	assert.False(t, g.Done())

	g.Tick()
	g.Tick()
	assert.Equal(t, []int{0, 1, 2}, steps)
	assert.True(t, g.Done())
	assert.False(t, g.Running())

	g.Tick()
	assert.Equal(t, []int{0, 1, 2}, steps)
}

func TestGenerator_StopIsIdempotentAndCleansUp(t *testing.T) {
	cleaned := 0
	g := fiber.NewGenerator("cleanup", func(yield func() bool) {
		defer func() { cleaned++ }()
		for yield() {
		}
	})

	g.Stop()
	assert.Equal(t, 0, cleaned, "stop before start is a no-op")

	g.Start()
	g.Tick()
	g.Stop()
	g.Stop()
	assert.Equal(t, 1, cleaned)
	assert.False(t, g.Running())
}

func TestGenerator_RestartRunsFromTheTop(t *testing.T) {
	runs := 0
	g := fiber.NewGenerator("restart", func(yield func() bool) {
		runs++
		for yield() {
		}
	})

	g.Start()
	g.Tick()
	g.Start()
	g.Tick()
	assert.Equal(t, 1, runs, "start on a running generator is a no-op")

	g.Stop()
	g.Start()
	g.Tick()
	assert.Equal(t, 2, runs)
	assert.Equal(t, uint64(1), g.Ticks())
}

func TestGenerator_PanicPropagates(t *testing.T) {
	g := fiber.NewGenerator("boom", func(yield func() bool) {
		yield()
		panic("boom")
	})
	g.Start()
	g.Tick()
	assert.PanicsWithValue(t, "boom", g.Tick)
}

func TestGenerator_AnonymousGetsUniqueName(t *testing.T) {
	a := fiber.NewGenerator("", func(func() bool) {})
	b := fiber.NewGenerator("", func(func() bool) {})
	require.True(t, strings.HasPrefix(a.Name(), "gen-"))
	assert.NotEqual(t, a.Name(), b.Name())
}
