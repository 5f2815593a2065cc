// Package hwcounter provides the free-running down-counters behind the
// motion clock: a simulated one for host builds and tests, and the RP2 system
// timer on hardware.
package hwcounter

import (
	"context"
	"sync"
	"time"
)

// Sim is a software down-counter. It only moves when stepped, either by
// hand or by Run. Interrupt callbacks are invoked with no lock held.
type Sim struct {
	mu         sync.Mutex
	top        uint32
	ticks      uint32
	cmp        uint32
	cmpEnabled bool
	cmpFlag    bool

	onOverflow func()
	onCompare  func()
}

func NewSim(top uint32) *Sim {
	if top == 0 {
		panic("hwcounter: zero top")
	}
	return &Sim{top: top, ticks: top}
}

// SetHandlers installs the overflow and compare callbacks. Either may be nil.
func (s *Sim) SetHandlers(overflow, compare func()) {
	s.mu.Lock()
	s.onOverflow, s.onCompare = overflow, compare
	s.mu.Unlock()
}

func (s *Sim) Top() uint32 { return s.top }

func (s *Sim) Ticks() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

func (s *Sim) SetCompare(v uint32) {
	s.mu.Lock()
	s.cmp = v
	s.mu.Unlock()
}

func (s *Sim) EnableCompare() {
	s.mu.Lock()
	s.cmpEnabled = true
	s.mu.Unlock()
}

func (s *Sim) DisableCompare() {
	s.mu.Lock()
	s.cmpEnabled = false
	s.mu.Unlock()
}

func (s *Sim) ClearCompare() {
	s.mu.Lock()
	s.cmpFlag = false
	s.mu.Unlock()
}

// CompareEnabled reports whether the compare interrupt is unmasked.
func (s *Sim) CompareEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmpEnabled
}

// Set moves the counter without raising anything.
func (s *Sim) Set(v uint32) {
	s.mu.Lock()
	if v > s.top {
		v = s.top
	}
	s.ticks = v
	s.mu.Unlock()
}

// Step advances n ticks, raising overflow on each reload and compare each
// time the counter lands on the compare value while it is enabled.
func (s *Sim) Step(n uint32) {
	var overflows, compares int

	s.mu.Lock()
	for n > 0 {
		if s.ticks == 0 {
			s.ticks = s.top
			overflows++
			n--
			if s.cmpEnabled && s.cmp == s.top {
				s.cmpFlag = true
				compares++
			}
			continue
		}
		d := n
		if d > s.ticks {
			d = s.ticks
		}
		next := s.ticks - d
		if s.cmpEnabled && s.cmp < s.ticks && s.cmp >= next {
			s.cmpFlag = true
			compares++
		}
		s.ticks = next
		n -= d
	}
	ovf, cmp := s.onOverflow, s.onCompare
	s.mu.Unlock()

	for i := 0; i < overflows; i++ {
		if ovf != nil {
			ovf()
		}
	}
	for i := 0; i < compares; i++ {
		if cmp != nil {
			cmp()
		}
	}
}

// Run steps the counter at tps ticks per second of wall time until ctx is
// done.
func (s *Sim) Run(ctx context.Context, tps uint32) {
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()

	start := time.Now()
	var done uint64
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			d := now.Sub(start)
			want := uint64(d/time.Second)*uint64(tps) +
				uint64(d%time.Second)*uint64(tps)/uint64(time.Second)
			if want > done {
				s.Step(uint32(want - done))
				done = want
			}
		}
	}
}
