// Package clock keeps uptime from a free-running down-counter plus an
// overflow count, and owns the single one-shot relative timer.
package clock

import (
	"motionlink-go/errcode"
	"motionlink-go/types"
	"motionlink-go/x/critical"
)

// Counter is the hardware counter. It counts down from Top to zero and
// reloads, raising overflow on reload. The compare unit fires when the
// counter reaches the compare value.
type Counter interface {
	Ticks() uint32
	Top() uint32
	SetCompare(v uint32)
	EnableCompare()
	DisableCompare()
	ClearCompare()
}

// Poster receives events raised from the counter's interrupt handlers.
type Poster interface {
	Post(types.Event)
	Withdraw(types.Event)
}

type Clock struct {
	ctr  Counter
	post Poster

	periodMs uint32
	tps      uint32
	period   uint32

	// Shared with interrupt handlers; guarded by cs.
	cs        critical.Section
	overflows uint32
	target    uint32
	active    bool
}

// New panics if cfg does not describe ctr.
func New(ctr Counter, post Poster, cfg types.TimerConfig) *Clock {
	if ctr == nil || post == nil {
		panic("clock: nil collaborator")
	}
	if cfg.TicksPerSecond() == 0 || cfg.PeriodTicks() == 0 {
		panic("clock: zero tick rate")
	}
	if ctr.Top() != cfg.PeriodTicks() {
		panic("clock: counter top does not match period")
	}
	return &Clock{
		ctr:      ctr,
		post:     post,
		periodMs: cfg.PeriodMs,
		tps:      cfg.TicksPerSecond(),
		period:   cfg.PeriodTicks(),
	}
}

// NowMs is milliseconds since start. The overflow count is sampled on both
// sides of the counter read and the read is retried if an overflow landed
// in between.
func (c *Clock) NowMs() uint64 {
	var n uint32
	var t uint32
	for {
		st := c.cs.Enter()
		n = c.overflows
		c.cs.Exit(st)

		t = c.ctr.Ticks()

		st = c.cs.Enter()
		again := n != c.overflows
		c.cs.Exit(st)
		if !again {
			break
		}
	}
	if t > c.period {
		t = c.period
	}
	elapsed := uint64(c.period-t) * 1000 / uint64(c.tps)
	return uint64(n)*uint64(c.periodMs) + elapsed
}

// Overflows is the number of counter reloads seen. It wraps.
func (c *Clock) Overflows() uint32 {
	st := c.cs.Enter()
	n := c.overflows
	c.cs.Exit(st)
	return n
}

// Ticks converts a microsecond duration to counter ticks, rounding down.
func (c *Clock) Ticks(usec uint32) uint64 {
	return uint64(usec) * uint64(c.tps) / 1_000_000
}

func (c *Clock) checkRange(usec uint32) (uint32, error) {
	t := c.Ticks(usec)
	if t < 1 || t >= uint64(c.period) {
		return 0, errcode.OutOfRange
	}
	return uint32(t), nil
}

// StartRelative arms the one-shot timer to raise TimerCompareElapsed after
// usec. Any timer already armed is replaced and a compare event it raised
// but the loop has not taken is withdrawn. Out-of-range requests leave the
// hardware untouched.
func (c *Clock) StartRelative(usec uint32) error {
	ticks, err := c.checkRange(usec)
	if err != nil {
		return err
	}

	st := c.cs.Enter()
	c.ctr.DisableCompare()
	c.ctr.ClearCompare()
	c.post.Withdraw(types.EventTimerCompareElapsed)

	c.target = CompareTarget(c.ctr.Ticks(), ticks, c.period)
	c.active = true
	c.ctr.SetCompare(c.target)
	c.ctr.EnableCompare()
	c.cs.Exit(st)
	return nil
}

// CancelRelative disarms the timer. Calling it with nothing armed is fine.
func (c *Clock) CancelRelative() {
	st := c.cs.Enter()
	c.ctr.DisableCompare()
	c.ctr.ClearCompare()
	c.active = false
	c.post.Withdraw(types.EventTimerCompareElapsed)
	c.cs.Exit(st)
}

// Active reports the armed compare target.
func (c *Clock) Active() (uint32, bool) {
	st := c.cs.Enter()
	t, ok := c.target, c.active
	c.cs.Exit(st)
	return t, ok
}

// HandleOverflow is the counter reload interrupt handler.
func (c *Clock) HandleOverflow() {
	st := c.cs.Enter()
	c.overflows++
	c.cs.Exit(st)
	c.post.Post(types.EventTimerOverflow)
}

// HandleCompare is the compare interrupt handler. The timer is one-shot:
// it disarms itself before posting. The post happens inside the section
// so a CancelRelative cannot fall between disarm and post.
func (c *Clock) HandleCompare() {
	st := c.cs.Enter()
	c.ctr.DisableCompare()
	c.ctr.ClearCompare()
	if c.active {
		c.active = false
		c.post.Post(types.EventTimerCompareElapsed)
	}
	c.cs.Exit(st)
}

// Delay spins until usec has passed on the counter. It must not be called
// from an interrupt handler.
func (c *Clock) Delay(usec uint32) error {
	ticks, err := c.checkRange(usec)
	if err != nil {
		return err
	}
	start := c.ctr.Ticks()
	for Distance(start, c.ctr.Ticks(), c.period) < ticks {
	}
	return nil
}

// CompareTarget is the counter value ticks after start on a down-counter
// that reloads to period. When start is below ticks the target wraps
// through zero.
func CompareTarget(start, ticks, period uint32) uint32 {
	if start >= ticks {
		return start - ticks
	}
	return period + start - ticks
}

// Distance is how far a down-counter moved from start to now, allowing for
// one reload.
func Distance(start, now, period uint32) uint32 {
	if now <= start {
		return start - now
	}
	return period + start - now
}
