package timing

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is returned when a FramePeriod has a non-positive term.
var ErrInvalidPeriod = errors.New("invalid frame period")

// FramePeriod describes the nominal duration of one logical frame as the
// fraction Num*1000/Denom milliseconds. A larger Num makes the clock slower.
type FramePeriod struct {
	Num   int64
	Denom int64
}

// DefaultFramePeriod is 24*1000/1001 ms, roughly 23.976ms per frame.
var DefaultFramePeriod = FramePeriod{Num: 24, Denom: 1001}

// Validate reports whether both terms are positive.
func (p FramePeriod) Validate() error {
	if p.Num <= 0 || p.Denom <= 0 {
		return fmt.Errorf("%w: %d/%d", ErrInvalidPeriod, p.Num, p.Denom)
	}
	return nil
}

// PeriodFor returns the offset of frame n from the anchor, n*Num*1000/Denom ms.
// It is computed from n directly so rounding never accumulates across frames.
func (p FramePeriod) PeriodFor(n uint64) time.Duration {
	units := int64(n) * p.Num
	whole := units / p.Denom
	rem := units % p.Denom
	return time.Duration(whole)*time.Second + time.Duration(rem)*time.Second/time.Duration(p.Denom)
}

// Duration returns the length of a single frame.
func (p FramePeriod) Duration() time.Duration {
	return p.PeriodFor(1)
}

func (p FramePeriod) String() string {
	return fmt.Sprintf("%d/%d (%.3fms)", p.Num, p.Denom, float64(p.Duration())/float64(time.Millisecond))
}
