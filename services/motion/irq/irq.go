// Package irq binds interrupt lines to the motion loop. The handler it
// installs only posts an event flag; the loop does the rest.
package irq

import (
	"errors"
	"sync/atomic"

	"motionlink-go/types"
)

type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// Pin is an input that can run a handler on an edge. The handler may be
// called from interrupt context.
type Pin interface {
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// Poster receives the event. Satisfied by *motion.Service.
type Poster interface {
	PostEvent(types.Event)
}

var ErrNoEdge = errors.New("irq: no edge selected")

// Line is one bound interrupt line.
type Line struct {
	pin  Pin
	hits uint32
}

// Bind makes every edge on pin post ev.
func Bind(pin Pin, edge Edge, post Poster, ev types.Event) (*Line, error) {
	if edge == EdgeNone {
		return nil, ErrNoEdge
	}
	l := &Line{pin: pin}
	handler := func() {
		atomic.AddUint32(&l.hits, 1)
		post.PostEvent(ev)
	}
	if err := pin.SetIRQ(edge, handler); err != nil {
		return nil, err
	}
	return l, nil
}

// Hits counts handler invocations. Several hits may fold into one event.
func (l *Line) Hits() uint32 { return atomic.LoadUint32(&l.hits) }

func (l *Line) Close() error { return l.pin.ClearIRQ() }
