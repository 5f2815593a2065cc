// Package linkncp is the wireless link over a UART attached BLE network
// co-processor. Commands are answered in order with a status frame;
// connection events arrive unsolicited and are published on the bus as
// types.LinkEvent.
package linkncp

import (
	"context"
	"strconv"
	"sync"
	"time"

	"motionlink-go/bus"
	"motionlink-go/errcode"
	"motionlink-go/types"
	"motionlink-go/x/logx"
)

// Port is the serial line to the co-processor. *uartx.UART satisfies it.
type Port interface {
	Write(p []byte) (int, error)
	// RecvSomeContext blocks until at least one byte is read or ctx ends.
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

type status struct {
	cmd FrameType
	st  byte
}

type Link struct {
	port    Port
	conn    *bus.Connection
	topic   bus.Topic
	timeout time.Duration

	mu   sync.Mutex // one command in flight
	wbuf []byte
	rsp  chan status
}

// New creates the link. cmdTimeout bounds the wait for a status frame.
func New(port Port, conn *bus.Connection, topic bus.Topic, cmdTimeout time.Duration) *Link {
	if cmdTimeout <= 0 {
		cmdTimeout = 100 * time.Millisecond
	}
	return &Link{
		port:    port,
		conn:    conn,
		topic:   topic,
		timeout: cmdTimeout,
		wbuf:    make([]byte, 0, MaxPayload+overhead),
		rsp:     make(chan status, 1),
	}
}

// Run reads frames until ctx ends.
func (l *Link) Run(ctx context.Context) {
	var d Decoder
	buf := make([]byte, 64)
	for {
		n, err := l.port.RecvSomeContext(ctx, buf)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logx.Warn("[ncp] read:", err)
			continue
		}
		for _, b := range buf[:n] {
			f, ok, err := d.Feed(b)
			if err != nil {
				logx.Warn("[ncp] frame dropped:", err)
				continue
			}
			if ok {
				l.dispatch(f)
			}
		}
	}
}

func (l *Link) dispatch(f Frame) {
	p := f.Payload
	if f.Type == RspStatus && len(p) >= 2 {
		select {
		case l.rsp <- status{cmd: FrameType(p[0]), st: p[1]}:
		default:
			logx.Warn("[ncp] unsolicited status for", FrameType(p[0]))
		}
		return
	}

	if len(p) < minLen(f.Type) {
		logx.Warn("[ncp] short", f.Type, "frame")
		return
	}
	var ev types.LinkEvent
	switch f.Type {
	case EvtOpened:
		ev = types.LinkEvent{Kind: types.LinkOpened, Conn: p[0]}
	case EvtClosed:
		ev = types.LinkEvent{Kind: types.LinkClosed, Conn: p[0]}
	case EvtSubscription:
		ev = types.LinkEvent{Kind: types.LinkUnsubscribed, Conn: p[0], Attr: u16(p[1:])}
		if p[3] != 0 {
			ev.Kind = types.LinkSubscribed
		}
	case EvtIndicationAck:
		ev = types.LinkEvent{Kind: types.LinkAck, Conn: p[0], Attr: u16(p[1:])}
	case EvtIndicationTout:
		ev = types.LinkEvent{Kind: types.LinkTimeout, Conn: p[0], Attr: u16(p[1:])}
	default:
		logx.Debug("[ncp] ignoring frame", byte(f.Type))
		return
	}
	l.conn.Publish(l.conn.NewMessage(l.topic, ev, false))
}

func minLen(t FrameType) int {
	switch t {
	case RspStatus:
		return 2
	case EvtOpened, EvtClosed:
		return 1
	case EvtSubscription:
		return 4
	case EvtIndicationAck, EvtIndicationTout:
		return 3
	}
	return 0
}

// command writes one frame and waits for its status.
func (l *Link) command(t FrameType, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case <-l.rsp:
	default:
	}

	var err error
	if l.wbuf, err = AppendFrame(l.wbuf[:0], t, payload); err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: t.String(), Err: err}
	}
	if _, err := l.port.Write(l.wbuf); err != nil {
		return &errcode.E{C: errcode.Transport, Op: t.String(), Err: err}
	}

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	for {
		select {
		case r := <-l.rsp:
			if r.cmd != t {
				logx.Warn("[ncp] status for", r.cmd, "while waiting for", t)
				continue
			}
			switch c := errcode.FromStatus(r.st); c {
			case errcode.OK:
				return nil
			case errcode.Busy:
				return errcode.Busy
			default:
				return &errcode.E{C: c, Op: t.String(), Msg: "status " + strconv.Itoa(int(r.st))}
			}
		case <-timer.C:
			return &errcode.E{C: errcode.Timeout, Op: t.String()}
		}
	}
}

func (l *Link) WriteAttribute(attr, offset uint16, value []byte) error {
	var p [MaxPayload]byte
	if len(value) > MaxPayload-4 {
		return &errcode.E{C: errcode.InvalidParams, Op: "write_attr", Err: ErrTooLong}
	}
	putU16(p[0:], attr)
	putU16(p[2:], offset)
	n := 4 + copy(p[4:], value)
	return l.command(CmdWriteAttr, p[:n])
}

func (l *Link) SendIndication(conn uint8, attr uint16, value []byte) error {
	var p [MaxPayload]byte
	if len(value) > MaxPayload-3 {
		return &errcode.E{C: errcode.InvalidParams, Op: "indicate", Err: ErrTooLong}
	}
	p[0] = conn
	putU16(p[1:], attr)
	n := 3 + copy(p[3:], value)
	return l.command(CmdIndicate, p[:n])
}

func (l *Link) StartAdvertising() error { return l.command(CmdAdvStart, nil) }
func (l *Link) StopAdvertising() error  { return l.command(CmdAdvStop, nil) }
