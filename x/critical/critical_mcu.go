//go:build rp2040 || rp2350

package critical

import "runtime/interrupt"

// State is the interrupt mask saved by Enter.
type State interrupt.State

// Section masks interrupts on the current core. The zero value is ready.
type Section struct{}

func (*Section) Enter() State { return State(interrupt.Disable()) }

func (*Section) Exit(st State) { interrupt.Restore(interrupt.State(st)) }
