//go:build rp2040

package hwcounter

import (
	"device/rp"
	"runtime/interrupt"
)

// The runtime sleeps on ALARM0; the motion clock takes ALARM2 for reload
// and ALARM3 for compare.
const (
	alarmOverflow = 2
	alarmCompare  = 3
)

// Timer presents the 1 MHz RP2040 system timer as a down-counter with a
// software reload every top+1 microseconds.
type Timer struct {
	top      uint32
	epoch    uint32 // TIMERAWL at the last reload
	cmp      uint32
	deadline uint32

	onOverflow func()
	onCompare  func()
}

var timer0 *Timer

// NewTimer claims the timer alarms. Only one Timer may exist.
func NewTimer(top uint32) *Timer {
	if timer0 != nil {
		panic("hwcounter: timer already claimed")
	}
	if top == 0 {
		panic("hwcounter: zero top")
	}
	timer0 = &Timer{top: top}
	return timer0
}

func (t *Timer) SetHandlers(overflow, compare func()) {
	t.onOverflow, t.onCompare = overflow, compare
}

// Start begins counting from top and enables the reload interrupt.
func (t *Timer) Start() {
	interrupt.New(rp.IRQ_TIMER_IRQ_2, handleOverflow).Enable()
	interrupt.New(rp.IRQ_TIMER_IRQ_3, handleCompare).Enable()

	st := interrupt.Disable()
	t.epoch = rp.TIMER.TIMERAWL.Get()
	rp.TIMER.ALARM2.Set(t.epoch + t.top + 1)
	rp.TIMER.INTE.SetBits(1 << alarmOverflow)
	interrupt.Restore(st)
}

func (t *Timer) Top() uint32 { return t.top }

func (t *Timer) Ticks() uint32 {
	d := rp.TIMER.TIMERAWL.Get() - t.epoch
	if d > t.top {
		return 0
	}
	return t.top - d
}

// SetCompare latches the compare value; it is turned into an alarm
// deadline by EnableCompare.
func (t *Timer) SetCompare(v uint32) {
	if v > t.top {
		v = t.top
	}
	t.cmp = v
}

func (t *Timer) EnableCompare() {
	now := rp.TIMER.TIMERAWL.Get()
	t.deadline = t.epoch + (t.top - t.cmp)
	if int32(t.deadline-now) <= 0 {
		t.deadline += t.top + 1
	}
	rp.TIMER.ALARM3.Set(t.deadline)
	rp.TIMER.INTE.SetBits(1 << alarmCompare)
}

func (t *Timer) DisableCompare() {
	rp.TIMER.INTE.ClearBits(1 << alarmCompare)
	rp.TIMER.ARMED.Set(1 << alarmCompare)
}

func (t *Timer) ClearCompare() {
	rp.TIMER.INTR.Set(1 << alarmCompare)
}

func handleOverflow(interrupt.Interrupt) {
	t := timer0
	rp.TIMER.INTR.Set(1 << alarmOverflow)
	t.epoch += t.top + 1
	rp.TIMER.ALARM2.Set(t.epoch + t.top + 1)
	if t.onOverflow != nil {
		t.onOverflow()
	}
}

func handleCompare(interrupt.Interrupt) {
	t := timer0
	rp.TIMER.INTR.Set(1 << alarmCompare)
	if t.onCompare != nil {
		t.onCompare()
	}
}
