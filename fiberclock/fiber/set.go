package fiber

import "iter"

// Set is an identity set of fibers that iterates in insertion order.
// Tick fan-out relies on that order, so it is part of the contract.
type Set struct {
	items []Fiber
	index map[Fiber]int
}

func NewSet(fibers ...Fiber) *Set {
	s := &Set{index: make(map[Fiber]int)}
	for _, f := range fibers {
		s.Add(f)
	}
	return s
}

// Add appends f unless it is already present. Reports whether it was added.
func (s *Set) Add(f Fiber) bool {
	if _, ok := s.index[f]; ok {
		return false
	}
	s.index[f] = len(s.items)
	s.items = append(s.items, f)
	return true
}

// Delete removes f, keeping the order of the rest. Reports whether it was present.
func (s *Set) Delete(f Fiber) bool {
	i, ok := s.index[f]
	if !ok {
		return false
	}
	delete(s.index, f)
	copy(s.items[i:], s.items[i+1:])
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
	return true
}

func (s *Set) Has(f Fiber) bool {
	_, ok := s.index[f]
	return ok
}

func (s *Set) Len() int { return len(s.items) }

func (s *Set) Clear() {
	clear(s.index)
	clear(s.items)
	s.items = s.items[:0]
}

// Slice returns a copy of the members in insertion order.
func (s *Set) Slice() []Fiber {
	out := make([]Fiber, len(s.items))
	copy(out, s.items)
	return out
}

// All iterates over a snapshot of the members, so the set may be mutated
// while iterating.
func (s *Set) All() iter.Seq[Fiber] {
	snapshot := s.Slice()
	return func(yield func(Fiber) bool) {
		for _, f := range snapshot {
			if !yield(f) {
				return
			}
		}
	}
}
