//go:build !(rp2040 || rp2350)

package critical

import "sync"

// State is unused on host builds; it keeps call sites identical to MCU builds.
type State uintptr

// Section serialises simulated interrupt handlers against the loop. The zero
// value is ready.
type Section struct{ mu sync.Mutex }

func (s *Section) Enter() State { s.mu.Lock(); return 0 }

func (s *Section) Exit(State) { s.mu.Unlock() }
