//go:build rp2040 || rp2350

package irq

import "machine"

// MachinePin adapts a GPIO pin. It configures the pin as an input with
// pull-down when the interrupt is set.
type MachinePin struct {
	Pin machine.Pin
}

func (p MachinePin) SetIRQ(edge Edge, handler func()) error {
	var c machine.PinChange
	switch edge {
	case EdgeRising:
		c = machine.PinRising
	case EdgeFalling:
		c = machine.PinFalling
	case EdgeBoth:
		c = machine.PinToggle
	default:
		return ErrNoEdge
	}
	p.Pin.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return p.Pin.SetInterrupt(c, func(machine.Pin) { handler() })
}

func (p MachinePin) ClearIRQ() error { return p.Pin.SetInterrupt(0, nil) }
