//go:build linux && !(rp2040 || rp2350)

package irq

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// CdevPin is a line on a Linux GPIO character device, e.g. the
// accelerometer INT1 wired to a Raspberry Pi header.
type CdevPin struct {
	Chip   string // "gpiochip0" if empty
	Offset int

	line *gpiocdev.Line
}

func (p *CdevPin) SetIRQ(edge Edge, handler func()) error {
	var eo gpiocdev.LineReqOption
	switch edge {
	case EdgeRising:
		eo = gpiocdev.WithRisingEdge
	case EdgeFalling:
		eo = gpiocdev.WithFallingEdge
	case EdgeBoth:
		eo = gpiocdev.WithBothEdges
	default:
		return ErrNoEdge
	}
	chip := p.Chip
	if chip == "" {
		chip = "gpiochip0"
	}
	l, err := gpiocdev.RequestLine(chip, p.Offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		eo,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { handler() }))
	if err != nil {
		return fmt.Errorf("request %s line %d: %w", chip, p.Offset, err)
	}
	p.line = l
	return nil
}

func (p *CdevPin) ClearIRQ() error {
	if p.line == nil {
		return nil
	}
	err := p.line.Close()
	p.line = nil
	return err
}
