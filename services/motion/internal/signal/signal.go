// Package signal is the hand-off between interrupt handlers and the event
// loop: a word of OR-coalesced event flags guarded by a critical section.
package signal

import (
	"motionlink-go/types"
	"motionlink-go/x/critical"
)

// Word holds posted but unobserved events.
type Word struct {
	cs        critical.Section
	bits      types.Event
	coalesced uint32

	// Written by ISR with a non-blocking send; MUST NOT block the ISR.
	wake chan struct{}
}

func New() *Word {
	return &Word{wake: make(chan struct{}, 1)}
}

// Post sets e. Safe from interrupt context.
func (w *Word) Post(e types.Event) {
	if e == types.EventNone {
		return
	}
	st := w.cs.Enter()
	if w.bits&e != 0 {
		w.coalesced++
	}
	w.bits |= e
	w.cs.Exit(st)

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Take returns and clears every pending event. Loop context only.
func (w *Word) Take() types.Event {
	st := w.cs.Enter()
	e := w.bits
	w.bits = types.EventNone
	w.cs.Exit(st)
	return e
}

// Withdraw clears e if it has not been taken yet.
func (w *Word) Withdraw(e types.Event) {
	st := w.cs.Enter()
	w.bits &^= e
	w.cs.Exit(st)
}

// Pending peeks without clearing.
func (w *Word) Pending() types.Event {
	st := w.cs.Enter()
	e := w.bits
	w.cs.Exit(st)
	return e
}

// Coalesced counts posts that landed on an already-set flag.
func (w *Word) Coalesced() uint32 {
	st := w.cs.Enter()
	n := w.coalesced
	w.cs.Exit(st)
	return n
}

// Wake fires at least once after any Post. A wake may be spurious (the bits
// were already taken); consumers should call Take and handle EventNone.
func (w *Word) Wake() <-chan struct{} { return w.wake }
