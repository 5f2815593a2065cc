package linkncp

import "motionlink-go/errcode"

// Frame layout: SOF | type | len | payload[len] | xor(type, len, payload).
const (
	SOF        = 0xA5
	MaxPayload = 64
	overhead   = 4
)

type FrameType byte

// Host to co-processor commands. Each is answered by RspStatus.
const (
	CmdWriteAttr FrameType = 0x01 // attr u16le | offset u16le | value
	CmdIndicate  FrameType = 0x02 // conn | attr u16le | value
	CmdAdvStart  FrameType = 0x03
	CmdAdvStop   FrameType = 0x04
)

// Co-processor to host.
const (
	RspStatus         FrameType = 0x80 // cmd | status
	EvtOpened         FrameType = 0x81 // conn
	EvtClosed         FrameType = 0x82 // conn | reason
	EvtSubscription   FrameType = 0x83 // conn | attr u16le | indicate enabled
	EvtIndicationAck  FrameType = 0x84 // conn | attr u16le
	EvtIndicationTout FrameType = 0x85 // conn | attr u16le
)

func (t FrameType) String() string {
	switch t {
	case CmdWriteAttr:
		return "write_attr"
	case CmdIndicate:
		return "indicate"
	case CmdAdvStart:
		return "adv_start"
	case CmdAdvStop:
		return "adv_stop"
	case RspStatus:
		return "status"
	case EvtOpened:
		return "opened"
	case EvtClosed:
		return "closed"
	case EvtSubscription:
		return "subscription"
	case EvtIndicationAck:
		return "ind_ack"
	case EvtIndicationTout:
		return "ind_timeout"
	default:
		return "unknown"
	}
}

// ParseFrameType accepts the names produced by FrameType.String.
func ParseFrameType(s string) (FrameType, bool) {
	for _, t := range [...]FrameType{
		CmdWriteAttr, CmdIndicate, CmdAdvStart, CmdAdvStop,
		RspStatus, EvtOpened, EvtClosed, EvtSubscription, EvtIndicationAck, EvtIndicationTout,
	} {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

var (
	ErrTooLong  error = &errcode.E{C: errcode.InvalidFrame, Op: "ncp", Msg: "payload too long"}
	ErrChecksum error = &errcode.E{C: errcode.InvalidFrame, Op: "ncp", Msg: "bad checksum"}
)

// AppendFrame encodes one frame onto dst.
func AppendFrame(dst []byte, t FrameType, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return dst, ErrTooLong
	}
	sum := byte(t) ^ byte(len(payload))
	for _, b := range payload {
		sum ^= b
	}
	dst = append(dst, SOF, byte(t), byte(len(payload)))
	dst = append(dst, payload...)
	return append(dst, sum), nil
}

// Frame is a decoded frame. Payload aliases decoder storage and is only
// valid until the next Feed.
type Frame struct {
	Type    FrameType
	Payload []byte
}

type decState uint8

const (
	stSOF decState = iota
	stType
	stLen
	stPayload
	stSum
)

// Decoder reassembles frames from a byte stream, resyncing on SOF after
// any error.
type Decoder struct {
	st  decState
	typ FrameType
	n   int
	got int
	sum byte
	buf [MaxPayload]byte
}

// Feed consumes one byte. It returns ok when a frame completes, or an
// error when a frame was discarded.
func (d *Decoder) Feed(b byte) (f Frame, ok bool, err error) {
	switch d.st {
	case stSOF:
		if b == SOF {
			d.st = stType
		}
	case stType:
		d.typ = FrameType(b)
		d.sum = b
		d.st = stLen
	case stLen:
		if int(b) > MaxPayload {
			d.st = stSOF
			return Frame{}, false, ErrTooLong
		}
		d.n, d.got = int(b), 0
		d.sum ^= b
		if d.n == 0 {
			d.st = stSum
		} else {
			d.st = stPayload
		}
	case stPayload:
		d.buf[d.got] = b
		d.got++
		d.sum ^= b
		if d.got == d.n {
			d.st = stSum
		}
	case stSum:
		d.st = stSOF
		if b != d.sum {
			return Frame{}, false, ErrChecksum
		}
		return Frame{Type: d.typ, Payload: d.buf[:d.n]}, true, nil
	}
	return Frame{}, false, nil
}

func putU16(b []byte, v uint16) { b[0], b[1] = byte(v), byte(v>>8) }

func u16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
